package controllers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"localvoice-be/models"
	"localvoice-be/services"
	"localvoice-be/store"

	"github.com/gin-gonic/gin"
)

type passthroughTranslator struct{}

func (passthroughTranslator) Translate(ctx context.Context, text, from, to string) string {
	return text
}

// recordingStorage captures the local paths handed to Upload so tests can
// assert on temp-file handling.
type recordingStorage struct {
	paths []string
}

func (r *recordingStorage) Upload(ctx context.Context, filePath string) (*models.Image, error) {
	r.paths = append(r.paths, filePath)
	return &models.Image{
		URL:      "https://cdn.example/" + filepath.Base(filePath),
		PublicID: "localvoice/reports/" + filepath.Base(filePath),
	}, nil
}

func newCreateRouter(t *testing.T) (*gin.Engine, *recordingStorage) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := store.NewMemoryReportStore()
	translator := passthroughTranslator{}
	storage := &recordingStorage{}
	Init(s, services.NewEnricher(s, translator), services.NewLifecycle(s, translator), storage)

	router := gin.New()
	router.POST("/api/reports", CreateReport)
	return router, storage
}

func multipartBody(t *testing.T, fields map[string]string, fileName, fileContent string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("WriteField(%s): %v", key, err)
		}
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("image", fileName)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write([]byte(fileContent)); err != nil {
			t.Fatalf("writing file part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func validFormFields() map[string]string {
	return map[string]string{
		"title":       "Broken streetlight on Elm Street",
		"description": "The streetlight at the corner has been out for a week.",
		"category":    "streetlight",
		"language":    "en",
		"location":    `{"address":"12 Elm Street","coordinates":{"lat":40.748,"lng":-73.985}}`,
		"reportedBy":  `{"name":"Jane Roe","email":"jane@example.com"}`,
	}
}

func postMultipart(router *gin.Engine, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/reports", body)
	req.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestCreateReportMultipart(t *testing.T) {
	t.Run("malformed tags field is rejected", func(t *testing.T) {
		router, _ := newCreateRouter(t)
		fields := validFormFields()
		fields["tags"] = `pothole, urgent`
		body, contentType := multipartBody(t, fields, "", "")

		recorder := postMultipart(router, body, contentType)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", recorder.Code)
		}
		if !strings.Contains(recorder.Body.String(), "Invalid JSON in tags") {
			t.Errorf("body = %s, want tags rejection message", recorder.Body.String())
		}
	})

	t.Run("uploads sharing a filename get distinct temp paths", func(t *testing.T) {
		router, storage := newCreateRouter(t)

		for _, content := range []string{"first image bytes", "second image bytes"} {
			body, contentType := multipartBody(t, validFormFields(), "photo.jpg", content)
			recorder := postMultipart(router, body, contentType)
			if recorder.Code != http.StatusCreated {
				t.Fatalf("status = %d, want 201: %s", recorder.Code, recorder.Body.String())
			}
		}

		if len(storage.paths) != 2 {
			t.Fatalf("uploads = %d, want 2", len(storage.paths))
		}
		if storage.paths[0] == storage.paths[1] {
			t.Errorf("both uploads used the same temp path %q", storage.paths[0])
		}
		for _, path := range storage.paths {
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Errorf("temp file %q not cleaned up (stat err = %v)", path, err)
			}
		}
	})

	t.Run("valid tags are normalized onto the report", func(t *testing.T) {
		router, _ := newCreateRouter(t)
		fields := validFormFields()
		fields["tags"] = `[" Pothole ", "URGENT"]`
		body, contentType := multipartBody(t, fields, "", "")

		recorder := postMultipart(router, body, contentType)
		if recorder.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", recorder.Code, recorder.Body.String())
		}
		if !strings.Contains(recorder.Body.String(), `"pothole"`) || !strings.Contains(recorder.Body.String(), `"urgent"`) {
			t.Errorf("normalized tags missing from response: %s", recorder.Body.String())
		}
	})
}

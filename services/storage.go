package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"localvoice-be/models"
)

// ImageStorage uploads a local file to durable object storage and returns
// the stored image descriptor. The call is synchronous; the core does no
// retrying of its own.
type ImageStorage interface {
	Upload(ctx context.Context, filePath string) (*models.Image, error)
}

// CloudinaryStorage uploads through Cloudinary's unsigned upload endpoint
type CloudinaryStorage struct {
	cloudName    string
	uploadPreset string
	folder       string
	client       *http.Client
}

func NewCloudinaryStorage() *CloudinaryStorage {
	return &CloudinaryStorage{
		cloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		uploadPreset: os.Getenv("CLOUDINARY_UPLOAD_PRESET"),
		folder:       "localvoice/reports",
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *CloudinaryStorage) Upload(ctx context.Context, filePath string) (*models.Image, error) {
	if s.cloudName == "" {
		return nil, fmt.Errorf("CLOUDINARY_CLOUD_NAME is not configured")
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	body, contentType, err := buildUploadForm(file, filepath.Base(filePath), s.uploadPreset, s.folder)
	if err != nil {
		return nil, err
	}

	uploadURL := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/upload", s.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("cloudinary returned %d: %s", resp.StatusCode, string(raw))
	}

	var result struct {
		SecureURL string `json:"secure_url"`
		PublicID  string `json:"public_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &models.Image{URL: result.SecureURL, PublicID: result.PublicID}, nil
}

func buildUploadForm(file io.Reader, fileName, uploadPreset, folder string) (io.Reader, string, error) {
	buf := new(bytes.Buffer)
	writer := multipart.NewWriter(buf)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", err
	}
	if uploadPreset != "" {
		if err := writer.WriteField("upload_preset", uploadPreset); err != nil {
			return nil, "", err
		}
	}
	if err := writer.WriteField("folder", folder); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf, writer.FormDataContentType(), nil
}

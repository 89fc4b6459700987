package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"localvoice-be/models"
	"localvoice-be/services"
	"localvoice-be/store"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	reportStore  store.ReportStore
	enricher     *services.Enricher
	lifecycle    *services.Lifecycle
	imageStorage services.ImageStorage
)

// Init wires the controller package to its collaborators. Called once from
// main before routes are mounted.
func Init(s store.ReportStore, e *services.Enricher, l *services.Lifecycle, img services.ImageStorage) {
	reportStore = s
	enricher = e
	lifecycle = l
	imageStorage = img
}

type coordinatesInput struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type locationInput struct {
	Address     string           `json:"address"`
	Coordinates coordinatesInput `json:"coordinates"`
	City        string           `json:"city"`
	State       string           `json:"state"`
	ZipCode     string           `json:"zipCode"`
	Landmark    string           `json:"landmark"`
}

type reporterInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type createReportInput struct {
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Category      string        `json:"category"`
	Location      locationInput `json:"location"`
	Language      string        `json:"language"`
	AdminLanguage string        `json:"adminLanguage"`
	Priority      string        `json:"priority"`
	Tags          []string      `json:"tags"`
	ReportedBy    reporterInput `json:"reportedBy"`
}

// CreateReport handles citizen submissions, as JSON or as a multipart form
// with an optional image attachment.
func CreateReport(c *gin.Context) {
	var input createReportInput
	var image *models.Image

	if isMultipart(c) {
		parsed, uploaded, ok := parseMultipartReport(c)
		if !ok {
			return
		}
		input = parsed
		image = uploaded
	} else if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	if input.Language == "" {
		input.Language = "en"
	}

	draft := models.ReportDraft{
		Title:       input.Title,
		Description: input.Description,
		Category:    models.Category(input.Category),
		Location: models.Location{
			Address:     input.Location.Address,
			Coordinates: models.NewGeoPoint(input.Location.Coordinates.Lng, input.Location.Coordinates.Lat),
			City:        input.Location.City,
			State:       input.Location.State,
			ZipCode:     input.Location.ZipCode,
			Landmark:    input.Location.Landmark,
		},
		Language:      input.Language,
		AdminLanguage: input.AdminLanguage,
		Priority:      models.Priority(input.Priority),
		Tags:          input.Tags,
		ReportedBy: models.Reporter{
			Name:  input.ReportedBy.Name,
			Email: input.ReportedBy.Email,
			Phone: input.ReportedBy.Phone,
		},
		Image: image,
	}
	if userID, ok := actingUserID(c); ok {
		draft.ReportedBy.UserID = &userID
	}

	if vErr := draft.Validate(); vErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Validation error",
			"errors":  vErr.Violations,
		})
		return
	}

	report := models.NewReport(draft, time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := reportStore.Create(ctx, report); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to submit report"})
		return
	}

	// Enrichment runs under the request context: a client that goes away
	// mid-translation still keeps the persisted report above.
	enricher.EnrichOnCreate(c.Request.Context(), report)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Report submitted successfully",
		"data":    report,
	})
}

func isMultipart(c *gin.Context) bool {
	return c.ContentType() == "multipart/form-data"
}

// parseMultipartReport reads the multipart creation form, where location and
// reportedBy arrive as JSON-encoded fields next to the optional image file.
func parseMultipartReport(c *gin.Context) (createReportInput, *models.Image, bool) {
	input := createReportInput{
		Title:         c.PostForm("title"),
		Description:   c.PostForm("description"),
		Category:      c.PostForm("category"),
		Language:      c.PostForm("language"),
		AdminLanguage: c.PostForm("adminLanguage"),
		Priority:      c.PostForm("priority"),
	}

	if raw := c.PostForm("location"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &input.Location); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid JSON in location or reportedBy"})
			return input, nil, false
		}
	}
	if raw := c.PostForm("reportedBy"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &input.ReportedBy); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid JSON in location or reportedBy"})
			return input, nil, false
		}
	}
	if raw := c.PostForm("tags"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &input.Tags); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid JSON in tags"})
			return input, nil, false
		}
	}

	file, err := c.FormFile("image")
	if err != nil {
		return input, nil, true
	}

	// Unique temp path so concurrent uploads sharing a filename cannot
	// clobber each other.
	tmp, err := os.CreateTemp("", "localvoice-upload-*"+filepath.Ext(file.Filename))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to store uploaded image"})
		return input, nil, false
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to store uploaded image"})
		return input, nil, false
	}

	image, err := imageStorage.Upload(c.Request.Context(), tmpPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to upload image"})
		return input, nil, false
	}
	return input, image, true
}

// ListReports returns a filtered, sorted, paginated listing, translated into
// the requested language.
func ListReports(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "10"))

	params := services.ListParams{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Priority: c.Query("priority"),
		Language: c.Query("language"),
		SortBy:   c.DefaultQuery("sortBy", "createdAt"),
		Order:    c.DefaultQuery("order", "desc"),
		Page:     page,
		PageSize: pageSize,
	}
	if actor, ok := actorFromContext(c); ok && actor.Role == models.RoleAdmin {
		params.IncludeDeleted = c.Query("includeDeleted") == "true"
	}
	query := services.BuildListQuery(params)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	reports, totalCount, err := reportStore.FindMany(ctx, query.Filter, query.Sort, query.Page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to retrieve reports"})
		return
	}

	enricher.LocalizeAll(c.Request.Context(), reports, requestedLanguage(c))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"reports":    reports,
			"totalCount": totalCount,
			"page":       query.Page.Number,
			"totalPages": services.TotalPages(totalCount, query.Page.Size),
		},
	})
}

// GetReport returns one report and counts the view
func GetReport(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid report ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	report, err := lifecycle.View(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	enricher.Localize(c.Request.Context(), report, requestedLanguage(c))

	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}

// NearbyReports returns active reports within maxDistance meters of the
// given point, closest first.
func NearbyReports(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "lat and lng query parameters are required"})
		return
	}
	maxDistance, err := strconv.ParseFloat(c.DefaultQuery("maxDistance", "5000"), 64)
	if err != nil || maxDistance <= 0 {
		maxDistance = 5000
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	reports, err := reportStore.FindNearby(ctx, lat, lng, maxDistance)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to retrieve nearby reports"})
		return
	}

	enricher.LocalizeAll(c.Request.Context(), reports, requestedLanguage(c))

	c.JSON(http.StatusOK, gin.H{"success": true, "data": reports})
}

// GetReportStatistics returns the one-pass aggregation over active reports
func GetReportStatistics(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	statistics, err := lifecycle.Statistics(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to compute statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": statistics})
}

// VoteReport records an idempotent upvote for the authenticated user
func VoteReport(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid report ID"})
		return
	}
	userID, ok := actingUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "User not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	report, err := lifecycle.Upvote(ctx, id, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"votes": report.Votes, "userHasVoted": true},
	})
}

// requestedLanguage resolves the target locale for read-time enrichment: an
// explicit lang query wins, then the authenticated user's preference.
func requestedLanguage(c *gin.Context) string {
	if lang := c.Query("lang"); lang != "" {
		return lang
	}
	if actor, ok := actorFromContext(c); ok {
		return actor.Language
	}
	return ""
}

func actingUserID(c *gin.Context) (primitive.ObjectID, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(raw.(string))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

func actorFromContext(c *gin.Context) (services.Actor, bool) {
	userID, ok := actingUserID(c)
	if !ok {
		return services.Actor{}, false
	}
	actor := services.Actor{ID: userID}
	if v, exists := c.Get("role"); exists {
		actor.Role = models.Role(v.(string))
	}
	if v, exists := c.Get("name"); exists {
		actor.Name = v.(string)
	}
	if v, exists := c.Get("email"); exists {
		actor.Email = v.(string)
	}
	if v, exists := c.Get("lang"); exists {
		actor.Language = v.(string)
	}
	return actor, true
}

func respondError(c *gin.Context, err error) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Validation error", "errors": vErr.Violations})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Report not found"})
	case errors.Is(err, services.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "You are not authorized to perform this action"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Conflicting update, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong"})
	}
}

package models

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	phonePattern = regexp.MustCompile(`^[\d\s\-\+\(\)]+$`)
)

// ValidationError carries every violated constraint so a client sees all
// problems at once instead of fixing them one by one.
type ValidationError struct {
	Violations []string `json:"errors"`
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// ReportDraft is the validated input for creating a report
type ReportDraft struct {
	Title         string
	Description   string
	Category      Category
	Location      Location
	Language      string
	AdminLanguage string
	Priority      Priority
	ReportedBy    Reporter
	Tags          []string
	Image         *Image
}

// Validate checks every field constraint and returns the full list of
// violations, or nil when the draft is acceptable.
func (d *ReportDraft) Validate() *ValidationError {
	var violations []string

	// Length limits count characters, not bytes, so non-Latin scripts are
	// measured the same way as English.
	title := strings.TrimSpace(d.Title)
	switch {
	case title == "":
		violations = append(violations, "Title is required")
	case utf8.RuneCountInString(title) < 5:
		violations = append(violations, "Title must be at least 5 characters long")
	case utf8.RuneCountInString(title) > 200:
		violations = append(violations, "Title cannot exceed 200 characters")
	}

	description := strings.TrimSpace(d.Description)
	switch {
	case description == "":
		violations = append(violations, "Description is required")
	case utf8.RuneCountInString(description) < 10:
		violations = append(violations, "Description must be at least 10 characters")
	case utf8.RuneCountInString(description) > 2000:
		violations = append(violations, "Description cannot exceed 2000 characters")
	}

	if d.Category == "" {
		violations = append(violations, "Category is required")
	} else if !d.Category.Valid() {
		violations = append(violations, string(d.Category)+" is not a valid category")
	}

	if strings.TrimSpace(d.Location.Address) == "" {
		violations = append(violations, "Address is required")
	}
	coords := d.Location.Coordinates.Coordinates
	if len(coords) != 2 {
		violations = append(violations, "Coordinates are required")
	} else {
		lng, lat := coords[0], coords[1]
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			violations = append(violations, "Coordinates are out of range")
		}
	}

	if strings.TrimSpace(d.ReportedBy.Name) == "" {
		violations = append(violations, "Reporter name is required")
	}
	email := strings.TrimSpace(d.ReportedBy.Email)
	if email == "" {
		violations = append(violations, "Reporter email is required")
	} else if !emailPattern.MatchString(email) {
		violations = append(violations, "Please provide a valid email address")
	}
	if phone := strings.TrimSpace(d.ReportedBy.Phone); phone != "" && !phonePattern.MatchString(phone) {
		violations = append(violations, "Please provide a valid phone number")
	}

	if strings.TrimSpace(d.Language) == "" {
		violations = append(violations, "Language is required")
	}

	if d.Priority != "" && !d.Priority.Valid() {
		violations = append(violations, string(d.Priority)+" is not a valid priority")
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// NormalizeTags lower-cases and trims tags and drops duplicates and blanks
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		normalized = append(normalized, t)
	}
	return normalized
}

// NewReport builds the canonical entity from a validated draft. Translated
// fields start empty; enrichment fills them after the initial write.
func NewReport(d ReportDraft, now time.Time) *Report {
	priority := d.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	language := strings.ToLower(strings.TrimSpace(d.Language))
	adminLanguage := strings.ToLower(strings.TrimSpace(d.AdminLanguage))
	if adminLanguage == "" {
		adminLanguage = "en"
	}

	reporter := d.ReportedBy
	reporter.Email = strings.ToLower(strings.TrimSpace(reporter.Email))

	return &Report{
		ID:            primitive.NewObjectID(),
		Title:         LocalizedText{Original: strings.TrimSpace(d.Title)},
		Description:   LocalizedText{Original: strings.TrimSpace(d.Description)},
		Category:      d.Category,
		Location:      d.Location,
		Image:         d.Image,
		Status:        StatusNew,
		Priority:      priority,
		Language:      language,
		AdminLanguage: adminLanguage,
		Responses:     []Response{},
		ReportedBy:    reporter,
		StatusHistory: []StatusChange{},
		VotedBy:       []primitive.ObjectID{},
		Tags:          NormalizeTags(d.Tags),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

package models

import (
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func validDraft() ReportDraft {
	return ReportDraft{
		Title:       "Broken streetlight on Elm Street",
		Description: "The streetlight at the corner has been out for a week.",
		Category:    CategoryStreetlight,
		Location: Location{
			Address:     "12 Elm Street",
			Coordinates: NewGeoPoint(-73.985, 40.748),
		},
		Language: "en",
		ReportedBy: Reporter{
			Name:  "Jane Roe",
			Email: "jane@example.com",
		},
	}
}

func TestDraftValidate(t *testing.T) {
	t.Run("valid draft passes", func(t *testing.T) {
		d := validDraft()
		if err := d.Validate(); err != nil {
			t.Errorf("unexpected violations: %v", err.Violations)
		}
	})

	t.Run("short description reports the exact constraint", func(t *testing.T) {
		d := validDraft()
		d.Description = "too short"
		if len(d.Description) != 9 {
			t.Fatalf("fixture description should be 9 characters, got %d", len(d.Description))
		}
		err := d.Validate()
		if err == nil {
			t.Fatal("expected validation error")
		}
		if !containsViolation(err, "Description must be at least 10 characters") {
			t.Errorf("missing description violation, got %v", err.Violations)
		}
	})

	t.Run("limits count characters not bytes", func(t *testing.T) {
		d := validDraft()
		d.Description = "गड्ढा है" // 8 characters, 22 bytes
		err := d.Validate()
		if err == nil {
			t.Fatal("expected validation error for an 8-character description")
		}
		if !containsViolation(err, "Description must be at least 10 characters") {
			t.Errorf("missing description violation, got %v", err.Violations)
		}

		d = validDraft()
		d.Title = strings.Repeat("क", 100) // 100 characters, 300 bytes
		if err := d.Validate(); err != nil {
			t.Errorf("100-character title wrongly rejected: %v", err.Violations)
		}
	})

	t.Run("all violations reported at once", func(t *testing.T) {
		d := ReportDraft{
			Title:       "hey",
			Description: "short",
			Category:    Category("volcano"),
			Location:    Location{},
			ReportedBy:  Reporter{Email: "not-an-email"},
		}
		err := d.Validate()
		if err == nil {
			t.Fatal("expected validation error")
		}
		for _, want := range []string{
			"Title must be at least 5 characters long",
			"Description must be at least 10 characters",
			"volcano is not a valid category",
			"Address is required",
			"Coordinates are required",
			"Reporter name is required",
			"Please provide a valid email address",
			"Language is required",
		} {
			if !containsViolation(err, want) {
				t.Errorf("missing violation %q, got %v", want, err.Violations)
			}
		}
	})

	t.Run("field limits", func(t *testing.T) {
		tests := []struct {
			name      string
			mutate    func(*ReportDraft)
			violation string
		}{
			{"title too long", func(d *ReportDraft) { d.Title = strings.Repeat("x", 201) }, "Title cannot exceed 200 characters"},
			{"description too long", func(d *ReportDraft) { d.Description = strings.Repeat("x", 2001) }, "Description cannot exceed 2000 characters"},
			{"latitude out of range", func(d *ReportDraft) { d.Location.Coordinates = NewGeoPoint(0, 91) }, "Coordinates are out of range"},
			{"longitude out of range", func(d *ReportDraft) { d.Location.Coordinates = NewGeoPoint(-181, 0) }, "Coordinates are out of range"},
			{"bad phone", func(d *ReportDraft) { d.ReportedBy.Phone = "call me maybe" }, "Please provide a valid phone number"},
			{"bad priority", func(d *ReportDraft) { d.Priority = Priority("asap") }, "asap is not a valid priority"},
		}
		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				d := validDraft()
				test.mutate(&d)
				err := d.Validate()
				if err == nil {
					t.Fatal("expected validation error")
				}
				if !containsViolation(err, test.violation) {
					t.Errorf("missing violation %q, got %v", test.violation, err.Violations)
				}
			})
		}
	})
}

func containsViolation(err *ValidationError, want string) bool {
	for _, v := range err.Violations {
		if v == want {
			return true
		}
	}
	return false
}

func TestNewReportDefaults(t *testing.T) {
	d := validDraft()
	d.AdminLanguage = ""
	d.Tags = []string{" Potholes ", "potholes", "URGENT", ""}
	now := time.Now()

	r := NewReport(d, now)

	if r.Status != StatusNew {
		t.Errorf("initial status = %s, want %s", r.Status, StatusNew)
	}
	if r.Priority != PriorityMedium {
		t.Errorf("initial priority = %s, want %s", r.Priority, PriorityMedium)
	}
	if r.AdminLanguage != "en" {
		t.Errorf("adminLanguage = %q, want en", r.AdminLanguage)
	}
	if len(r.StatusHistory) != 0 {
		t.Errorf("initial statusHistory should be empty, got %d entries", len(r.StatusHistory))
	}
	if got, want := len(r.Tags), 2; got != want {
		t.Fatalf("tags = %v, want %d normalized entries", r.Tags, want)
	}
	if r.Tags[0] != "potholes" || r.Tags[1] != "urgent" {
		t.Errorf("tags not normalized: %v", r.Tags)
	}
	if !r.CreatedAt.Equal(now) || !r.UpdatedAt.Equal(now) {
		t.Error("timestamps not stamped from creation time")
	}
}

func TestApplyStatus(t *testing.T) {
	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	t.Run("every transition appends one history entry", func(t *testing.T) {
		r := NewReport(validDraft(), created)
		r.ApplyStatus(StatusInProgress, "admin", "", created.Add(time.Hour))
		r.ApplyStatus(StatusRejected, "admin", "duplicate of older report", created.Add(2*time.Hour))
		r.ApplyStatus(StatusInProgress, "admin", "", created.Add(3*time.Hour))

		if len(r.StatusHistory) != 3 {
			t.Fatalf("statusHistory length = %d, want 3", len(r.StatusHistory))
		}
		if r.StatusHistory[1].Comment != "duplicate of older report" {
			t.Errorf("comment not recorded: %+v", r.StatusHistory[1])
		}
		if r.Status != StatusInProgress {
			t.Errorf("status = %s, want %s", r.Status, StatusInProgress)
		}
	})

	t.Run("first resolution stamps floor hours", func(t *testing.T) {
		r := NewReport(validDraft(), created)
		resolvedAt := created.Add(49*time.Hour + 45*time.Minute)
		r.ApplyStatus(StatusResolved, "admin", "", resolvedAt)

		if r.Resolution.ResolvedAt == nil || !r.Resolution.ResolvedAt.Equal(resolvedAt) {
			t.Fatalf("resolvedAt = %v, want %v", r.Resolution.ResolvedAt, resolvedAt)
		}
		if r.Resolution.ResolutionTimeHours == nil || *r.Resolution.ResolutionTimeHours != 49 {
			t.Errorf("resolutionTimeHours = %v, want 49", r.Resolution.ResolutionTimeHours)
		}
	})

	t.Run("re-entering resolved keeps the original resolution", func(t *testing.T) {
		r := NewReport(validDraft(), created)
		first := created.Add(2 * time.Hour)
		r.ApplyStatus(StatusResolved, "admin", "", first)
		r.ApplyStatus(StatusInProgress, "admin", "reopened", created.Add(3*time.Hour))
		r.ApplyStatus(StatusResolved, "admin", "", created.Add(30*time.Hour))

		if !r.Resolution.ResolvedAt.Equal(first) {
			t.Errorf("resolvedAt changed on re-entry: %v", r.Resolution.ResolvedAt)
		}
		if *r.Resolution.ResolutionTimeHours != 2 {
			t.Errorf("resolutionTimeHours changed on re-entry: %d", *r.Resolution.ResolutionTimeHours)
		}
		if len(r.StatusHistory) != 3 {
			t.Errorf("statusHistory length = %d, want 3", len(r.StatusHistory))
		}
	})
}

func TestApplyUpvote(t *testing.T) {
	r := NewReport(validDraft(), time.Now())
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()

	if !r.ApplyUpvote(alice, time.Now()) {
		t.Error("first vote should be recorded")
	}
	if r.ApplyUpvote(alice, time.Now()) {
		t.Error("duplicate vote should be a no-op")
	}
	if !r.ApplyUpvote(bob, time.Now()) {
		t.Error("vote by a second user should be recorded")
	}

	if r.Votes != 2 {
		t.Errorf("votes = %d, want 2", r.Votes)
	}
	if r.Votes != len(r.VotedBy) {
		t.Errorf("votes (%d) != |votedBy| (%d)", r.Votes, len(r.VotedBy))
	}
}

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"localvoice-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newStoredReport(t *testing.T, s *MemoryReportStore, mutate func(*models.Report)) *models.Report {
	t.Helper()
	report := models.NewReport(models.ReportDraft{
		Title:       "Pothole near the market",
		Description: "A deep pothole keeps damaging car wheels.",
		Category:    models.CategoryPothole,
		Location: models.Location{
			Address:     "Market Street 4",
			Coordinates: models.NewGeoPoint(13.405, 52.52),
		},
		Language:   "de",
		ReportedBy: models.Reporter{Name: "Max", Email: "max@example.com"},
	}, time.Now())
	if mutate != nil {
		mutate(report)
	}
	if err := s.Create(context.Background(), report); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return report
}

func TestMemoryStoreFindByID(t *testing.T) {
	s := NewMemoryReportStore()
	report := newStoredReport(t, s, nil)

	got, err := s.FindByID(context.Background(), report.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Title.Original != report.Title.Original {
		t.Errorf("unexpected report: %+v", got)
	}

	if _, err := s.FindByID(context.Background(), primitive.NewObjectID()); err != ErrNotFound {
		t.Errorf("unknown id: err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreUpvote(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent per identity", func(t *testing.T) {
		s := NewMemoryReportStore()
		report := newStoredReport(t, s, nil)
		user := primitive.NewObjectID()

		first, err := s.Upvote(ctx, report.ID, user)
		if err != nil {
			t.Fatalf("Upvote: %v", err)
		}
		second, err := s.Upvote(ctx, report.ID, user)
		if err != nil {
			t.Fatalf("duplicate Upvote: %v", err)
		}
		if first.Votes != 1 || second.Votes != 1 {
			t.Errorf("votes after duplicate upvote = %d/%d, want 1/1", first.Votes, second.Votes)
		}
		if second.Votes != len(second.VotedBy) {
			t.Errorf("votes (%d) != |votedBy| (%d)", second.Votes, len(second.VotedBy))
		}
	})

	t.Run("no lost updates under concurrency", func(t *testing.T) {
		s := NewMemoryReportStore()
		report := newStoredReport(t, s, nil)

		const voters = 32
		var wg sync.WaitGroup
		for i := 0; i < voters; i++ {
			user := primitive.NewObjectID()
			wg.Add(1)
			go func() {
				defer wg.Done()
				// Each voter votes twice; only the first may count.
				_, _ = s.Upvote(ctx, report.ID, user)
				_, _ = s.Upvote(ctx, report.ID, user)
			}()
		}
		wg.Wait()

		got, err := s.FindByID(ctx, report.ID)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got.Votes != voters {
			t.Errorf("votes = %d, want %d", got.Votes, voters)
		}
		if got.Votes != len(got.VotedBy) {
			t.Errorf("votes (%d) != |votedBy| (%d)", got.Votes, len(got.VotedBy))
		}
	})

	t.Run("unknown report", func(t *testing.T) {
		s := NewMemoryReportStore()
		if _, err := s.Upvote(ctx, primitive.NewObjectID(), primitive.NewObjectID()); err != ErrNotFound {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestMemoryStoreChangeStatus(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryReportStore()
	report := newStoredReport(t, s, nil)

	updated, err := s.ChangeStatus(ctx, report.ID, models.StatusInProgress, "clerk", "assigned to crew")
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if updated.Status != models.StatusInProgress {
		t.Errorf("status = %s, want in-progress", updated.Status)
	}
	if len(updated.StatusHistory) != 1 {
		t.Fatalf("statusHistory length = %d, want 1", len(updated.StatusHistory))
	}

	resolved, err := s.ChangeStatus(ctx, report.ID, models.StatusResolved, "clerk", "")
	if err != nil {
		t.Fatalf("ChangeStatus to resolved: %v", err)
	}
	if resolved.Resolution.ResolvedAt == nil || resolved.Resolution.ResolutionTimeHours == nil {
		t.Fatal("resolution not stamped on first transition into resolved")
	}
	firstResolvedAt := *resolved.Resolution.ResolvedAt

	// Leave and re-enter resolved: resolution must not change.
	if _, err := s.ChangeStatus(ctx, report.ID, models.StatusInProgress, "clerk", "reopened"); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	again, err := s.ChangeStatus(ctx, report.ID, models.StatusResolved, "clerk", "")
	if err != nil {
		t.Fatalf("re-resolve: %v", err)
	}
	if !again.Resolution.ResolvedAt.Equal(firstResolvedAt) {
		t.Error("resolvedAt overwritten on re-entry into resolved")
	}
	if len(again.StatusHistory) != 4 {
		t.Errorf("statusHistory length = %d, want 4", len(again.StatusHistory))
	}
}

func TestMemoryStoreFindMany(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryReportStore()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		i := i
		newStoredReport(t, s, func(r *models.Report) {
			r.CreatedAt = base.Add(time.Duration(i) * time.Hour)
			if i%2 == 0 {
				r.Category = models.CategoryGarbage
			}
			if i == 4 {
				r.IsDeleted = true
			}
		})
	}

	t.Run("soft-deleted excluded by default", func(t *testing.T) {
		items, total, err := s.FindMany(ctx, Filter{}, Sort{Field: "createdAt", Descending: true}, Page{Number: 1, Size: 10})
		if err != nil {
			t.Fatalf("FindMany: %v", err)
		}
		if total != 4 || len(items) != 4 {
			t.Errorf("total = %d, items = %d, want 4 each", total, len(items))
		}
		for i := 1; i < len(items); i++ {
			if items[i-1].CreatedAt.Before(items[i].CreatedAt) {
				t.Error("items not sorted createdAt descending")
			}
		}
	})

	t.Run("category filter and pagination", func(t *testing.T) {
		garbage := models.CategoryGarbage
		items, total, err := s.FindMany(ctx, Filter{Category: &garbage}, Sort{Field: "createdAt"}, Page{Number: 2, Size: 1})
		if err != nil {
			t.Fatalf("FindMany: %v", err)
		}
		if total != 2 {
			t.Errorf("total = %d, want 2 active garbage reports", total)
		}
		if len(items) != 1 {
			t.Fatalf("page of size 1 returned %d items", len(items))
		}
	})

	t.Run("include deleted for admin listings", func(t *testing.T) {
		_, total, err := s.FindMany(ctx, Filter{IncludeDeleted: true}, Sort{Field: "createdAt"}, Page{Number: 1, Size: 10})
		if err != nil {
			t.Fatalf("FindMany: %v", err)
		}
		if total != 5 {
			t.Errorf("total = %d, want 5", total)
		}
	})
}

func TestMemoryStoreFindNearby(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryReportStore()

	center := []float64{52.52, 13.405} // lat, lng

	far := newStoredReport(t, s, func(r *models.Report) {
		r.Location.Coordinates = models.NewGeoPoint(13.45, 52.54) // ~3.9km away
	})
	atCenter1 := newStoredReport(t, s, func(r *models.Report) {
		r.Location.Coordinates = models.NewGeoPoint(13.405, 52.52)
	})
	atCenter2 := newStoredReport(t, s, func(r *models.Report) {
		r.Location.Coordinates = models.NewGeoPoint(13.405, 52.52)
	})
	newStoredReport(t, s, func(r *models.Report) {
		r.Location.Coordinates = models.NewGeoPoint(13.7, 52.6) // ~22km away
	})
	newStoredReport(t, s, func(r *models.Report) {
		r.Location.Coordinates = models.NewGeoPoint(13.405, 52.52)
		r.IsDeleted = true
	})

	results, err := s.FindNearby(ctx, center[0], center[1], 5000)
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3 within 5km", len(results))
	}
	// Co-located reports come first, tied by creation order, then the
	// farther one.
	if results[0].ID != atCenter1.ID || results[1].ID != atCenter2.ID {
		t.Error("distance-0 ties not ordered by creation time")
	}
	if results[2].ID != far.ID {
		t.Error("farther report not last")
	}
}

func TestMemoryStoreStatistics(t *testing.T) {
	ctx := context.Background()

	t.Run("zero resolved reports yields nil average", func(t *testing.T) {
		s := NewMemoryReportStore()
		newStoredReport(t, s, nil)
		newStoredReport(t, s, nil)

		stats, err := s.Statistics(ctx)
		if err != nil {
			t.Fatalf("Statistics: %v", err)
		}
		if stats.Total != 2 {
			t.Errorf("total = %d, want 2", stats.Total)
		}
		if stats.ByStatus[models.StatusNew] != 2 {
			t.Errorf("byStatus[new] = %d, want 2", stats.ByStatus[models.StatusNew])
		}
		if stats.AvgResolutionHours != nil {
			t.Errorf("avg resolution = %v, want nil", *stats.AvgResolutionHours)
		}
	})

	t.Run("grouping and resolution average", func(t *testing.T) {
		s := NewMemoryReportStore()
		r1 := newStoredReport(t, s, func(r *models.Report) { r.Priority = models.PriorityHigh })
		r2 := newStoredReport(t, s, func(r *models.Report) { r.Category = models.CategoryWater })
		newStoredReport(t, s, func(r *models.Report) { r.IsDeleted = true })

		two, four := 2, 4
		seedResolution(t, s, r1.ID, two)
		seedResolution(t, s, r2.ID, four)

		stats, err := s.Statistics(ctx)
		if err != nil {
			t.Fatalf("Statistics: %v", err)
		}
		if stats.Total != 2 {
			t.Errorf("total = %d, want 2 (deleted excluded)", stats.Total)
		}
		if stats.ByStatus[models.StatusResolved] != 2 {
			t.Errorf("byStatus[resolved] = %d, want 2", stats.ByStatus[models.StatusResolved])
		}
		if stats.ByPriority[models.PriorityHigh] != 1 {
			t.Errorf("byPriority[high] = %d, want 1", stats.ByPriority[models.PriorityHigh])
		}
		if stats.ByCategory[models.CategoryWater] != 1 {
			t.Errorf("byCategory[water] = %d, want 1", stats.ByCategory[models.CategoryWater])
		}
		if stats.AvgResolutionHours == nil || *stats.AvgResolutionHours != 3 {
			t.Errorf("avg resolution = %v, want 3", stats.AvgResolutionHours)
		}
	})
}

// seedResolution resolves a report and forces a known resolution time so
// averages are deterministic.
func seedResolution(t *testing.T, s *MemoryReportStore, id primitive.ObjectID, hours int) {
	t.Helper()
	if _, err := s.ChangeStatus(context.Background(), id, models.StatusResolved, "tester", ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	s.mu.Lock()
	s.reports[id].Resolution.ResolutionTimeHours = &hours
	s.mu.Unlock()
}

func TestMemoryStoreSoftDeleteAndViews(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryReportStore()
	report := newStoredReport(t, s, nil)

	if err := s.IncrementViews(ctx, report.ID); err != nil {
		t.Fatalf("IncrementViews: %v", err)
	}
	if err := s.IncrementViews(ctx, report.ID); err != nil {
		t.Fatalf("IncrementViews: %v", err)
	}
	got, _ := s.FindByID(ctx, report.ID)
	if got.Views != 2 {
		t.Errorf("views = %d, want 2", got.Views)
	}

	if err := s.SoftDelete(ctx, report.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	got, err := s.FindByID(ctx, report.ID)
	if err != nil {
		t.Fatalf("soft-deleted report must stay stored: %v", err)
	}
	if !got.IsDeleted {
		t.Error("isDeleted not set")
	}
}

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"localvoice-be/models"
	"localvoice-be/utils"

	"github.com/montanaflynn/stats"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryReportStore is a mutex-serialised in-process ReportStore. It backs
// the test suite and is a workable store for small deployments; its linear
// haversine scan in FindNearby is only suitable below roughly 10,000 active
// reports, beyond which the Mongo store's 2dsphere index is required.
type MemoryReportStore struct {
	mu      sync.Mutex
	reports map[primitive.ObjectID]*models.Report
	seq     map[primitive.ObjectID]int64
	nextSeq int64
}

func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{
		reports: make(map[primitive.ObjectID]*models.Report),
		seq:     make(map[primitive.ObjectID]int64),
	}
}

func (s *MemoryReportStore) Create(ctx context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	s.reports[report.ID] = report.Clone()
	s.seq[report.ID] = s.nextSeq
	s.nextSeq++
	return nil
}

func (s *MemoryReportStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

func (s *MemoryReportStore) get(id primitive.ObjectID) (*models.Report, error) {
	report, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return report.Clone(), nil
}

func (s *MemoryReportStore) FindMany(ctx context.Context, filter Filter, sortBy Sort, page Page) ([]models.Report, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*models.Report, 0, len(s.reports))
	for _, report := range s.reports {
		if matches(report, filter) {
			matched = append(matched, report)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		less, equal := compareByField(matched[i], matched[j], sortBy.Field)
		if equal {
			return s.seq[matched[i].ID] < s.seq[matched[j].ID]
		}
		if sortBy.Descending {
			return !less
		}
		return less
	})

	total := int64(len(matched))
	start := page.Skip()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.Size
	if page.Size <= 0 || end > len(matched) {
		end = len(matched)
	}

	items := make([]models.Report, 0, end-start)
	for _, report := range matched[start:end] {
		items = append(items, *report.Clone())
	}
	return items, total, nil
}

func matches(report *models.Report, filter Filter) bool {
	if !filter.IncludeDeleted && report.IsDeleted {
		return false
	}
	if filter.Status != nil && report.Status != *filter.Status {
		return false
	}
	if filter.Category != nil && report.Category != *filter.Category {
		return false
	}
	if filter.Priority != nil && report.Priority != *filter.Priority {
		return false
	}
	if filter.Language != "" && report.Language != filter.Language {
		return false
	}
	return true
}

func compareByField(a, b *models.Report, field string) (less, equal bool) {
	switch field {
	case "votes":
		return a.Votes < b.Votes, a.Votes == b.Votes
	case "views":
		return a.Views < b.Views, a.Views == b.Views
	case "priority":
		return a.Priority < b.Priority, a.Priority == b.Priority
	default: // createdAt
		return a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
	}
}

func (s *MemoryReportStore) Update(ctx context.Context, id primitive.ObjectID, mutation Mutation) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	if mutation.Priority != nil {
		report.Priority = *mutation.Priority
	}
	if mutation.AdminNotes != nil {
		report.AdminNotes = *mutation.AdminNotes
	}
	if mutation.IsFlagged != nil {
		report.IsFlagged = *mutation.IsFlagged
	}
	if mutation.FlagReason != nil {
		report.FlagReason = *mutation.FlagReason
	}
	if mutation.AssignedTo != nil {
		assigned := *mutation.AssignedTo
		report.AssignedTo = &assigned
	}
	if mutation.Tags != nil {
		report.Tags = models.NormalizeTags(mutation.Tags)
	}
	if mutation.Image != nil {
		img := *mutation.Image
		report.Image = &img
	}
	report.UpdatedAt = time.Now()
	return report.Clone(), nil
}

func (s *MemoryReportStore) ChangeStatus(ctx context.Context, id primitive.ObjectID, status models.Status, changedBy, comment string) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	report.ApplyStatus(status, changedBy, comment, time.Now())
	return report.Clone(), nil
}

func (s *MemoryReportStore) Upvote(ctx context.Context, id primitive.ObjectID, userID primitive.ObjectID) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	report.ApplyUpvote(userID, time.Now())
	return report.Clone(), nil
}

func (s *MemoryReportStore) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return ErrNotFound
	}
	report.Views++
	report.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryReportStore) SetTranslations(ctx context.Context, id primitive.ObjectID, title, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return ErrNotFound
	}
	report.Title.Translated = title
	report.Description.Translated = description
	report.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryReportStore) AddResponse(ctx context.Context, id primitive.ObjectID, response models.Response) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	report.Responses = append(report.Responses, response)
	report.UpdatedAt = time.Now()
	return report.Clone(), nil
}

func (s *MemoryReportStore) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return ErrNotFound
	}
	report.IsDeleted = true
	report.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryReportStore) FindNearby(ctx context.Context, lat, lng, maxMeters float64) ([]models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type withDistance struct {
		report   *models.Report
		distance float64
	}
	var nearby []withDistance
	for _, report := range s.reports {
		if report.IsDeleted {
			continue
		}
		point := report.Location.Coordinates
		d := utils.Haversine(lat, lng, point.Lat(), point.Lng())
		if d <= maxMeters {
			nearby = append(nearby, withDistance{report: report, distance: d})
		}
	}

	sort.Slice(nearby, func(i, j int) bool {
		if nearby[i].distance != nearby[j].distance {
			return nearby[i].distance < nearby[j].distance
		}
		return s.seq[nearby[i].report.ID] < s.seq[nearby[j].report.ID]
	})

	results := make([]models.Report, 0, len(nearby))
	for _, n := range nearby {
		results = append(results, *n.report.Clone())
	}
	return results, nil
}

func (s *MemoryReportStore) Statistics(ctx context.Context) (*Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &Statistics{
		ByStatus:   map[models.Status]int64{},
		ByCategory: map[models.Category]int64{},
		ByPriority: map[models.Priority]int64{},
	}

	var resolutionHours []float64
	for _, report := range s.reports {
		if report.IsDeleted {
			continue
		}
		result.Total++
		result.ByStatus[report.Status]++
		result.ByCategory[report.Category]++
		result.ByPriority[report.Priority]++
		if report.Status == models.StatusResolved && report.Resolution.ResolutionTimeHours != nil {
			resolutionHours = append(resolutionHours, float64(*report.Resolution.ResolutionTimeHours))
		}
	}

	if len(resolutionHours) > 0 {
		avg, err := stats.Mean(resolutionHours)
		if err != nil {
			return nil, err
		}
		result.AvgResolutionHours = &avg
	}
	return result, nil
}

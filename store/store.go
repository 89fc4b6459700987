package store

import (
	"context"
	"errors"

	"localvoice-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when no report exists for the given id
	ErrNotFound = errors.New("report not found")
	// ErrConflict is returned when a concurrent modification is detected
	ErrConflict = errors.New("concurrent modification detected")
)

// Filter is a conjunction over report fields. Soft-deleted reports are
// excluded unless IncludeDeleted is set.
type Filter struct {
	Status         *models.Status
	Category       *models.Category
	Priority       *models.Priority
	Language       string
	IncludeDeleted bool
}

type Sort struct {
	Field      string
	Descending bool
}

// Page is 1-indexed; Skip computes the offset for the backing query
type Page struct {
	Number int
	Size   int
}

func (p Page) Skip() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Mutation is a partial update applied by Update. Nil fields are untouched.
type Mutation struct {
	Priority   *models.Priority
	AdminNotes *string
	IsFlagged  *bool
	FlagReason *string
	AssignedTo *primitive.ObjectID
	Tags       []string
	Image      *models.Image
}

// Statistics is the one-pass aggregation over active (non-deleted) reports.
// AvgResolutionHours is nil when no report has a resolution time.
type Statistics struct {
	Total              int64                     `json:"total"`
	ByStatus           map[models.Status]int64   `json:"byStatus"`
	ByCategory         map[models.Category]int64 `json:"byCategory"`
	ByPriority         map[models.Priority]int64 `json:"byPriority"`
	AvgResolutionHours *float64                  `json:"avgResolutionTime"`
}

// ReportStore owns validated persistence and retrieval of reports. Status,
// vote and view mutations go through dedicated operations so the store can
// keep each of them atomic.
type ReportStore interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error)
	FindMany(ctx context.Context, filter Filter, sort Sort, page Page) ([]models.Report, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, mutation Mutation) (*models.Report, error)

	// ChangeStatus appends the audit entry and, on the first transition into
	// resolved, stamps the resolution, all without exposing partial state.
	ChangeStatus(ctx context.Context, id primitive.ObjectID, status models.Status, changedBy, comment string) (*models.Report, error)

	// Upvote is an atomic add-if-absent; a duplicate vote is a no-op that
	// returns the unchanged report.
	Upvote(ctx context.Context, id primitive.ObjectID, userID primitive.ObjectID) (*models.Report, error)

	IncrementViews(ctx context.Context, id primitive.ObjectID) error
	SetTranslations(ctx context.Context, id primitive.ObjectID, title, description string) error
	AddResponse(ctx context.Context, id primitive.ObjectID, response models.Response) (*models.Report, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) error

	// FindNearby returns active reports within maxMeters of (lat, lng),
	// ordered by increasing distance, ties broken by creation order.
	FindNearby(ctx context.Context, lat, lng, maxMeters float64) ([]models.Report, error)

	Statistics(ctx context.Context) (*Statistics, error)
}

package services

import (
	"context"
	"errors"
	"time"

	"localvoice-be/models"
	"localvoice-be/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotAuthorized is returned when the acting identity lacks the role
// required for a mutating operation.
var ErrNotAuthorized = errors.New("actor is not authorized for this operation")

// Actor is the resolved acting identity for authorization and locale
// decisions. The core never sees credentials, only this projection.
type Actor struct {
	ID       primitive.ObjectID
	Name     string
	Email    string
	Role     models.Role
	Language string
}

func (a Actor) displayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}

// Lifecycle drives the status state machine, voting, view counting and
// statistics on top of the report store's atomic operations.
type Lifecycle struct {
	store      store.ReportStore
	translator Translator
}

func NewLifecycle(s store.ReportStore, t Translator) *Lifecycle {
	return &Lifecycle{store: s, translator: t}
}

// ChangeStatus transitions the report and appends the audit entry. Any
// status may move to any other; the first arrival at resolved stamps the
// resolution exactly once. Admin only.
func (l *Lifecycle) ChangeStatus(ctx context.Context, id primitive.ObjectID, status models.Status, actor Actor, comment string) (*models.Report, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrNotAuthorized
	}
	if !status.Valid() {
		return nil, &models.ValidationError{Violations: []string{string(status) + " is not a valid status"}}
	}
	return l.store.ChangeStatus(ctx, id, status, actor.displayName(), comment)
}

// ChangePriority updates the priority. Admin only.
func (l *Lifecycle) ChangePriority(ctx context.Context, id primitive.ObjectID, priority models.Priority, actor Actor) (*models.Report, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrNotAuthorized
	}
	if !priority.Valid() {
		return nil, &models.ValidationError{Violations: []string{string(priority) + " is not a valid priority"}}
	}
	return l.store.Update(ctx, id, store.Mutation{Priority: &priority})
}

// Update applies a status and/or priority change as one operation. Both
// values are validated before any write, so a rejected status never leaves
// a half-applied priority behind. Admin only.
func (l *Lifecycle) Update(ctx context.Context, id primitive.ObjectID, status *models.Status, priority *models.Priority, actor Actor, comment string) (*models.Report, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrNotAuthorized
	}
	var violations []string
	if status != nil && !status.Valid() {
		violations = append(violations, string(*status)+" is not a valid status")
	}
	if priority != nil && !priority.Valid() {
		violations = append(violations, string(*priority)+" is not a valid priority")
	}
	if len(violations) > 0 {
		return nil, &models.ValidationError{Violations: violations}
	}

	var report *models.Report
	var err error
	if priority != nil {
		report, err = l.ChangePriority(ctx, id, *priority, actor)
		if err != nil {
			return nil, err
		}
	}
	if status != nil {
		report, err = l.ChangeStatus(ctx, id, *status, actor, comment)
		if err != nil {
			return nil, err
		}
	}
	return report, nil
}

// Respond appends an administrative reply, translated into the report's
// native language so the citizen can read it. Admin only.
func (l *Lifecycle) Respond(ctx context.Context, id primitive.ObjectID, actor Actor, text string) (*models.Report, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrNotAuthorized
	}

	report, err := l.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	translated := l.translator.Translate(ctx, text, actor.Language, report.Language)
	response := models.Response{
		ID:               uuid.NewString(),
		Text:             models.LocalizedText{Original: text, Translated: translated},
		RespondedBy:      actor.displayName(),
		RespondedByEmail: actor.Email,
		RespondedAt:      time.Now(),
		Language:         report.Language,
	}
	return l.store.AddResponse(ctx, id, response)
}

// Upvote records an idempotent vote: a repeat vote by the same identity
// returns the unchanged report.
func (l *Lifecycle) Upvote(ctx context.Context, id primitive.ObjectID, userID primitive.ObjectID) (*models.Report, error) {
	return l.store.Upvote(ctx, id, userID)
}

// View returns the report and counts the read. Soft-deleted reports are not
// served.
func (l *Lifecycle) View(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	report, err := l.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.IsDeleted {
		return nil, store.ErrNotFound
	}
	if err := l.store.IncrementViews(ctx, id); err != nil {
		return nil, err
	}
	report.Views++
	return report, nil
}

// Delete soft-deletes the report. Admin only.
func (l *Lifecycle) Delete(ctx context.Context, id primitive.ObjectID, actor Actor) error {
	if actor.Role != models.RoleAdmin {
		return ErrNotAuthorized
	}
	return l.store.SoftDelete(ctx, id)
}

func (l *Lifecycle) Statistics(ctx context.Context) (*store.Statistics, error) {
	return l.store.Statistics(ctx)
}

package services

import (
	"context"
	"log/slog"

	"localvoice-be/models"
	"localvoice-be/store"

	"golang.org/x/sync/errgroup"
)

// defaultEnrichConcurrency caps translation fan-out per request so a large
// listing cannot overwhelm the provider.
const defaultEnrichConcurrency = 8

// Enricher composes store reads and writes with translation calls. Creation
// enrichment persists the admin-locale translation; read enrichment is
// transient and never written back.
type Enricher struct {
	store         store.ReportStore
	translator    Translator
	maxConcurrent int
}

func NewEnricher(s store.ReportStore, t Translator) *Enricher {
	return &Enricher{store: s, translator: t, maxConcurrent: defaultEnrichConcurrency}
}

// EnrichOnCreate translates title and description into the report's admin
// language and persists the result. The report itself is already stored; a
// failed or cancelled enrichment leaves it valid with empty translations.
func (e *Enricher) EnrichOnCreate(ctx context.Context, report *models.Report) {
	title := e.translator.Translate(ctx, report.Title.Original, report.Language, report.AdminLanguage)
	description := e.translator.Translate(ctx, report.Description.Original, report.Language, report.AdminLanguage)

	report.Title.Translated = title
	report.Description.Translated = description

	if err := e.store.SetTranslations(ctx, report.ID, title, description); err != nil {
		slog.Warn("failed to persist creation translations",
			slog.String("report", report.ID.Hex()), slog.String("error", err.Error()))
	}
}

// Localize fills the translated fields for the requested locale on the given
// snapshot. When the target matches the stored admin-locale translation the
// cached value is served as-is; otherwise the translation is recomputed
// without mutating stored state.
func (e *Enricher) Localize(ctx context.Context, report *models.Report, target string) {
	if target == "" || target == report.AdminLanguage {
		return
	}
	report.Title.Translated = e.translator.Translate(ctx, report.Title.Original, report.Language, target)
	report.Description.Translated = e.translator.Translate(ctx, report.Description.Original, report.Language, target)
}

// LocalizeAll localizes a listing with bounded fan-out. Up to 2N translation
// calls are spread over maxConcurrent workers.
func (e *Enricher) LocalizeAll(ctx context.Context, reports []models.Report, target string) {
	if target == "" || len(reports) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)
	for i := range reports {
		report := &reports[i]
		g.Go(func() error {
			e.Localize(gctx, report, target)
			return nil
		})
	}
	// Translate never returns an error, so Wait only synchronises.
	_ = g.Wait()
}

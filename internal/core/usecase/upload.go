package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

const uploadKeyPrefix = "uploads/"

// UploadUseCase stores a submitted file, issues a link to it and appends a catalog record.
type UploadUseCase struct {
	storage ports.ObjectStorage
	catalog ports.CatalogStore
	events  ports.CatalogEvents
	linkTTL time.Duration
	now     func() time.Time
}

func NewUploadUseCase(
	storage ports.ObjectStorage,
	catalog ports.CatalogStore,
	events ports.CatalogEvents,
	linkTTL time.Duration,
) *UploadUseCase {
	if linkTTL <= 0 {
		linkTTL = DefaultLinkTTL
	}
	return &UploadUseCase{
		storage: storage,
		catalog: catalog,
		events:  events,
		linkTTL: linkTTL,
		now:     time.Now,
	}
}

// Submit runs Idle -> Submitted -> Persisted | Rejected. Validation failures
// leave the outcome Idle and never reach storage.
func (uc *UploadUseCase) Submit(ctx context.Context, form domain.UploadForm) (*domain.UploadOutcome, error) {
	outcome := &domain.UploadOutcome{State: domain.UploadIdle}
	if err := validateUploadForm(form); err != nil {
		outcome.Step = domain.StepValidate
		return outcome, domain.WrapError(domain.ErrInvalidInput, "validate upload", err)
	}

	outcome.State = domain.UploadSubmitted
	id := uuid.NewString()
	key := fmt.Sprintf("%s%s_%s", uploadKeyPrefix, id, sanitizeFilename(form.Filename))

	if err := uc.storage.Save(ctx, key, form.ContentType, form.Body); err != nil {
		return uc.reject(outcome, domain.StepStoreFile, err)
	}

	link, err := uc.storage.PresignGet(ctx, key, uc.linkTTL)
	if err != nil {
		return uc.reject(outcome, domain.StepIssueLink, err)
	}

	record := domain.CatalogRecord{
		ID:          id,
		Name:        strings.TrimSpace(form.Name),
		Location:    strings.TrimSpace(form.Location),
		Description: strings.TrimSpace(form.Description),
		FileLink:    link,
		FileKey:     key,
		CreatedAt:   uc.now().UTC(),
	}
	if err := uc.catalog.Append(ctx, record); err != nil {
		return uc.reject(outcome, domain.StepSaveCatalog, err)
	}

	outcome.State = domain.UploadPersisted
	outcome.Record = &record
	slog.Info("catalog_upload", "state", outcome.State, "record_id", record.ID, "file_key", key)

	if uc.events != nil {
		if err := uc.events.PublishRecordPersisted(ctx, record); err != nil {
			slog.Warn("catalog_event_publish_failed", "record_id", record.ID, "error", err)
		}
	}
	return outcome, nil
}

func (uc *UploadUseCase) reject(outcome *domain.UploadOutcome, step domain.UploadStep, err error) (*domain.UploadOutcome, error) {
	outcome.State = domain.UploadRejected
	outcome.Step = step
	slog.Warn("catalog_upload", "state", outcome.State, "step", step, "error", err)
	return outcome, &domain.UploadError{Step: step, Err: err}
}

func validateUploadForm(form domain.UploadForm) error {
	var problems []error
	if form.Body == nil || strings.TrimSpace(form.Filename) == "" {
		problems = append(problems, errors.New("a file is required"))
	}
	if strings.TrimSpace(form.Name) == "" {
		problems = append(problems, errors.New("name is required"))
	}
	if strings.TrimSpace(form.Location) == "" {
		problems = append(problems, errors.New("location is required"))
	}
	return errors.Join(problems...)
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "file.bin"
	}
	return base
}

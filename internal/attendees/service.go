package attendees

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/datatypes"

	"devfest-certs/certificate-portal/certificate-portal-backend/internal/monitoring"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Service handles roster ingest and attendee administration.
type Service struct {
	repo    Repository
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

func NewService(repo Repository, logger *zap.Logger, metrics *monitoring.Metrics) *Service {
	return &Service{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
	}
}

// NormalizeName collapses whitespace and title-cases each word.
func NormalizeName(name string) string {
	// cases.Caser is stateful, so one is created per call.
	return cases.Title(language.Und).String(strings.Join(strings.Fields(name), " "))
}

// NormalizeTicketID trims surrounding whitespace. Ticket IDs are case-sensitive.
func NormalizeTicketID(ticketID string) string {
	return strings.TrimSpace(ticketID)
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ImportFile parses a roster file and imports its rows.
func (s *Service) ImportFile(ctx context.Context, filename string, r io.Reader) (*ImportResult, error) {
	rows, err := ParseRoster(filename, r)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, filename, rows)
}

// Import upserts rows one at a time. A bad row is skipped with a reason and
// never aborts the batch. The outcome is recorded as an ImportBatch.
func (s *Service) Import(ctx context.Context, filename string, rows []Row) (*ImportResult, error) {
	result := &ImportResult{}

	for _, row := range rows {
		attendee, reason := attendeeFromRow(row)
		if reason != "" {
			result.Errors = append(result.Errors, RowError{Line: row.Line, Reason: reason})
			continue
		}
		if _, err := s.repo.Upsert(ctx, attendee); err != nil {
			s.logger.Warn("Failed to upsert attendee",
				zap.Int("line", row.Line),
				zap.String("ticket_id", attendee.TicketID),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, RowError{Line: row.Line, Reason: "could not be saved"})
			continue
		}
		result.Processed++
	}
	result.Skipped = len(result.Errors)
	s.metrics.ObserveImport(result.Processed, result.Skipped)

	rowErrors := result.Errors
	if rowErrors == nil {
		rowErrors = []RowError{}
	}
	errorsJSON, err := json.Marshal(rowErrors)
	if err != nil {
		return nil, fmt.Errorf("failed to encode import errors: %w", err)
	}
	batch := &ImportBatch{
		Filename:  filename,
		Processed: result.Processed,
		Skipped:   result.Skipped,
		Errors:    datatypes.JSON(errorsJSON),
	}
	if err := s.repo.CreateImportBatch(ctx, batch); err != nil {
		s.logger.Error("Failed to record import batch", zap.String("filename", filename), zap.Error(err))
	} else {
		result.BatchID = batch.ID
	}

	s.logger.Info("Roster imported",
		zap.String("filename", filename),
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func attendeeFromRow(row Row) (*Attendee, string) {
	if row.Reason != "" {
		return nil, row.Reason
	}
	ticketID := NormalizeTicketID(row.TicketID)
	if ticketID == "" {
		return nil, "missing ticket ID"
	}
	name := NormalizeName(row.Name)
	if name == "" {
		return nil, "missing name"
	}
	attendee := &Attendee{TicketID: ticketID, Name: name}
	if email := NormalizeEmail(row.Email); email != "" {
		if !strings.Contains(email, "@") {
			return nil, "invalid email"
		}
		attendee.Email = &email
	}
	return attendee, ""
}

// GetByTicketID returns the attendee for an exact, trimmed ticket ID, or nil.
func (s *Service) GetByTicketID(ctx context.Context, ticketID string) (*Attendee, error) {
	return s.repo.GetByTicketID(ctx, NormalizeTicketID(ticketID))
}

// GetByEmail looks an attendee up by lower-cased email, or returns nil.
func (s *Service) GetByEmail(ctx context.Context, email string) (*Attendee, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return nil, nil
	}
	return s.repo.GetByEmail(ctx, normalized)
}

// List returns one page of attendees. Page defaults to 1 and PageSize is clamped to maxPageSize.
func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultPageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}

	attendees, count, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendees: %w", err)
	}
	if attendees == nil {
		attendees = []Attendee{}
	}
	return &ListResponse{
		Attendees: attendees,
		Count:     count,
		Page:      filter.Page,
		PageSize:  filter.PageSize,
	}, nil
}

// Delete removes an attendee by ID.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Attendee deleted", zap.String("id", id.String()))
	return nil
}

// ListImports returns the most recent import batches, newest first.
func (s *Service) ListImports(ctx context.Context, limit int) ([]ImportBatch, error) {
	return s.repo.ListImportBatches(ctx, limit)
}

// Export writes the whole roster as an .xlsx workbook.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	attendees, _, err := s.repo.List(ctx, ListFilter{})
	if err != nil {
		return fmt.Errorf("failed to load attendees: %w", err)
	}
	return WriteRoster(w, attendees, DefaultExportOptions())
}

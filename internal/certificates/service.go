package certificates

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"devfest-certs/certificate-portal/certificate-portal-backend/internal/attendees"
	"devfest-certs/certificate-portal/certificate-portal-backend/internal/monitoring"
	"devfest-certs/certificate-portal/certificate-portal-backend/pkg/pdf"
)

// AttendeeLookup finds an attendee by exact ticket ID, returning nil on a miss.
type AttendeeLookup interface {
	GetByTicketID(ctx context.Context, ticketID string) (*attendees.Attendee, error)
}

// TemplateResolver returns the active template bytes.
type TemplateResolver interface {
	Resolve(ctx context.Context) ([]byte, error)
}

// Certificate is a composed certificate ready to be sent.
type Certificate struct {
	Data     []byte
	Filename string
	Name     string
	TicketID string
}

// Verification is the outcome of a public verification lookup.
type Verification struct {
	Verified   bool   `json:"verified"`
	Name       string `json:"name,omitempty"`
	TicketID   string `json:"ticket_id"`
	EventLabel string `json:"event_label,omitempty"`
}

// Config carries the event label shown on verification results and the
// deadline applied to each attendee lookup. A zero LookupTimeout disables it.
type Config struct {
	EventLabel    string
	LookupTimeout time.Duration
}

// Service issues and verifies certificates. It holds no per-request state.
type Service struct {
	attendees AttendeeLookup
	templates TemplateResolver
	generator pdf.Generator
	config    Config
	logger    *zap.Logger
	metrics   *monitoring.Metrics
}

func NewService(attendees AttendeeLookup, templates TemplateResolver, generator pdf.Generator, config Config, logger *zap.Logger, metrics *monitoring.Metrics) *Service {
	return &Service{
		attendees: attendees,
		templates: templates,
		generator: generator,
		config:    config,
		logger:    logger,
		metrics:   metrics,
	}
}

var whitespace = regexp.MustCompile(`\s+`)

// SuggestedFilename returns the download name for a certificate issued to name.
func SuggestedFilename(name string) string {
	return "Certificate_" + whitespace.ReplaceAllString(name, "_") + ".pdf"
}

// Issue composes the certificate for ticketID.
func (s *Service) Issue(ctx context.Context, ticketID string) (*Certificate, error) {
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		s.metrics.ObserveIssue("invalid")
		return nil, ErrValidation
	}

	attendee, err := s.lookup(ctx, ticketID)
	if err != nil {
		s.metrics.ObserveIssue("error")
		return nil, err
	}
	if attendee == nil {
		s.metrics.ObserveIssue("not_found")
		return nil, ErrNotFound
	}

	template, err := s.templates.Resolve(ctx)
	if err != nil {
		s.metrics.ObserveIssue("error")
		return nil, err
	}

	start := time.Now()
	data, err := s.generator.Compose(template, attendee.Name, attendee.TicketID)
	s.metrics.ObserveCompose(start)
	if err != nil {
		s.metrics.ObserveIssue("error")
		return nil, fmt.Errorf("failed to compose certificate: %w", err)
	}

	s.metrics.ObserveIssue("ok")
	s.logger.Info("Certificate issued",
		zap.String("ticket_id", attendee.TicketID),
		zap.Int("size", len(data)),
		zap.Duration("compose_time", time.Since(start)),
	)
	return &Certificate{
		Data:     data,
		Filename: SuggestedFilename(attendee.Name),
		Name:     attendee.Name,
		TicketID: attendee.TicketID,
	}, nil
}

// Verify reports whether ticketID belongs to a registered attendee.
func (s *Service) Verify(ctx context.Context, ticketID string) (*Verification, error) {
	ticketID = strings.TrimSpace(ticketID)
	result := &Verification{TicketID: ticketID}
	if ticketID == "" {
		s.metrics.ObserveVerification(false)
		return result, nil
	}

	attendee, err := s.lookup(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if attendee == nil {
		s.metrics.ObserveVerification(false)
		return result, nil
	}

	s.metrics.ObserveVerification(true)
	result.Verified = true
	result.Name = attendee.Name
	result.TicketID = attendee.TicketID
	result.EventLabel = s.config.EventLabel
	return result, nil
}

// lookup bounds the store call by the lookup timeout. A timeout counts as a miss.
func (s *Service) lookup(ctx context.Context, ticketID string) (*attendees.Attendee, error) {
	if s.config.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.LookupTimeout)
		defer cancel()
	}

	attendee, err := s.attendees.GetByTicketID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			s.logger.Warn("Attendee lookup timed out", zap.String("ticket_id", ticketID))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up attendee: %w", err)
	}
	return attendee, nil
}

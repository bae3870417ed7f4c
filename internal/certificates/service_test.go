package certificates

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"devfest-certs/certificate-portal/certificate-portal-backend/internal/attendees"
	"devfest-certs/certificate-portal/certificate-portal-backend/internal/templates"
	"devfest-certs/certificate-portal/certificate-portal-backend/pkg/pdf"
)

// MockAttendeeLookup is a mock implementation of AttendeeLookup
type MockAttendeeLookup struct {
	mock.Mock
}

func (m *MockAttendeeLookup) GetByTicketID(ctx context.Context, ticketID string) (*attendees.Attendee, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*attendees.Attendee), args.Error(1)
}

// MockTemplateResolver is a mock implementation of TemplateResolver
type MockTemplateResolver struct {
	mock.Mock
}

func (m *MockTemplateResolver) Resolve(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockGenerator is a mock implementation of pdf.Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Compose(template []byte, name, ticketID string) ([]byte, error) {
	args := m.Called(template, name, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// slowLookup blocks until the context ends.
type slowLookup struct{}

func (slowLookup) GetByTicketID(ctx context.Context, _ string) (*attendees.Attendee, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

var testConfig = Config{EventLabel: "DevFest Test 2025", LookupTimeout: time.Second}

func TestSuggestedFilename(t *testing.T) {
	assert.Equal(t, "Certificate_John_Doe.pdf", SuggestedFilename("John Doe"))
	assert.Equal(t, "Certificate_Mary_Ann_Lee.pdf", SuggestedFilename("Mary  Ann\tLee"))
	assert.Equal(t, "Certificate_.pdf", SuggestedFilename(""))
}

func TestIssue(t *testing.T) {
	lookup := new(MockAttendeeLookup)
	resolver := new(MockTemplateResolver)
	generator := new(MockGenerator)
	service := NewService(lookup, resolver, generator, testConfig, zap.NewNop(), nil)

	template := []byte("%PDF-template")
	lookup.On("GetByTicketID", mock.Anything, "GOOGE25273ABCD").
		Return(&attendees.Attendee{TicketID: "GOOGE25273ABCD", Name: "John Doe"}, nil)
	resolver.On("Resolve", mock.Anything).Return(template, nil)
	generator.On("Compose", template, "John Doe", "GOOGE25273ABCD").Return([]byte("%PDF-certificate"), nil)

	cert, err := service.Issue(context.Background(), "  GOOGE25273ABCD\n")

	require.NoError(t, err)
	assert.Equal(t, "Certificate_John_Doe.pdf", cert.Filename)
	assert.Equal(t, []byte("%PDF-certificate"), cert.Data)
	lookup.AssertExpectations(t)
	resolver.AssertExpectations(t)
	generator.AssertExpectations(t)
}

func TestIssueBlankTicketMakesNoBackendCall(t *testing.T) {
	lookup := new(MockAttendeeLookup)
	service := NewService(lookup, new(MockTemplateResolver), new(MockGenerator), testConfig, zap.NewNop(), nil)

	_, err := service.Issue(context.Background(), "   ")

	assert.ErrorIs(t, err, ErrValidation)
	lookup.AssertNotCalled(t, "GetByTicketID", mock.Anything, mock.Anything)
}

func TestIssueUnknownTicket(t *testing.T) {
	lookup := new(MockAttendeeLookup)
	resolver := new(MockTemplateResolver)
	service := NewService(lookup, resolver, new(MockGenerator), testConfig, zap.NewNop(), nil)
	lookup.On("GetByTicketID", mock.Anything, "UNKNOWN-999").Return(nil, nil)

	_, err := service.Issue(context.Background(), "UNKNOWN-999")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "ticket ID not recognized, confirm you checked in", err.Error())
	resolver.AssertNotCalled(t, "Resolve", mock.Anything)
}

func TestIssueLookupTimeoutIsNotFound(t *testing.T) {
	service := NewService(slowLookup{}, new(MockTemplateResolver), new(MockGenerator),
		Config{LookupTimeout: 10 * time.Millisecond}, zap.NewNop(), nil)

	_, err := service.Issue(context.Background(), "T-1")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIssueStoreError(t *testing.T) {
	lookup := new(MockAttendeeLookup)
	service := NewService(lookup, new(MockTemplateResolver), new(MockGenerator), testConfig, zap.NewNop(), nil)
	lookup.On("GetByTicketID", mock.Anything, "T-1").Return(nil, errors.New("connection refused"))

	_, err := service.Issue(context.Background(), "T-1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestIssueTemplateUnavailable(t *testing.T) {
	lookup := new(MockAttendeeLookup)
	resolver := new(MockTemplateResolver)
	generator := new(MockGenerator)
	service := NewService(lookup, resolver, generator, testConfig, zap.NewNop(), nil)
	lookup.On("GetByTicketID", mock.Anything, "T-1").Return(&attendees.Attendee{TicketID: "T-1", Name: "A"}, nil)
	resolver.On("Resolve", mock.Anything).Return(nil, templates.ErrTemplateUnavailable)

	_, err := service.Issue(context.Background(), "T-1")

	assert.ErrorIs(t, err, templates.ErrTemplateUnavailable)
	generator.AssertNotCalled(t, "Compose", mock.Anything, mock.Anything, mock.Anything)
}

func TestIssueComposeFailure(t *testing.T) {
	lookup := new(MockAttendeeLookup)
	resolver := new(MockTemplateResolver)
	generator := new(MockGenerator)
	service := NewService(lookup, resolver, generator, testConfig, zap.NewNop(), nil)
	lookup.On("GetByTicketID", mock.Anything, "T-1").Return(&attendees.Attendee{TicketID: "T-1", Name: "A"}, nil)
	resolver.On("Resolve", mock.Anything).Return([]byte("junk"), nil)
	generator.On("Compose", []byte("junk"), "A", "T-1").Return(nil, pdf.ErrTemplateCorrupt)

	_, err := service.Issue(context.Background(), "T-1")

	assert.ErrorIs(t, err, pdf.ErrTemplateCorrupt)
}

func TestVerify(t *testing.T) {
	lookup := new(MockAttendeeLookup)
	service := NewService(lookup, nil, nil, testConfig, zap.NewNop(), nil)
	lookup.On("GetByTicketID", mock.Anything, "GOOGE25273ABCD").
		Return(&attendees.Attendee{TicketID: "GOOGE25273ABCD", Name: "John Doe"}, nil)
	lookup.On("GetByTicketID", mock.Anything, "UNKNOWN-999").Return(nil, nil)

	ok, err := service.Verify(context.Background(), " GOOGE25273ABCD ")
	require.NoError(t, err)
	assert.Equal(t, &Verification{Verified: true, Name: "John Doe", TicketID: "GOOGE25273ABCD", EventLabel: "DevFest Test 2025"}, ok)

	again, err := service.Verify(context.Background(), "GOOGE25273ABCD")
	require.NoError(t, err)
	assert.Equal(t, ok, again)

	missing, err := service.Verify(context.Background(), "UNKNOWN-999")
	require.NoError(t, err)
	assert.False(t, missing.Verified)
	assert.Empty(t, missing.Name)

	blank, err := service.Verify(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, blank.Verified)
}

func TestVerifyStoreError(t *testing.T) {
	lookup := new(MockAttendeeLookup)
	service := NewService(lookup, nil, nil, testConfig, zap.NewNop(), nil)
	lookup.On("GetByTicketID", mock.Anything, "T-1").Return(nil, errors.New("connection refused"))

	_, err := service.Verify(context.Background(), "T-1")

	assert.Error(t, err)
}

func TestIssueEndToEnd(t *testing.T) {
	env := newTestEnv(t)

	cert, err := env.certificates.Issue(context.Background(), "GOOGE25273ABCD")

	require.NoError(t, err)
	assert.Equal(t, "Certificate_John_Doe.pdf", cert.Filename)
	assert.True(t, bytes.HasPrefix(cert.Data, []byte("%PDF-")))
	assert.NoError(t, pdf.Validate(cert.Data))

	_, err = env.certificates.Issue(context.Background(), "UNKNOWN-999")
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := env.certificates.Verify(context.Background(), "UNKNOWN-999")
	require.NoError(t, err)
	assert.False(t, v.Verified)
}

func TestIssueWithEmptyTemplateStore(t *testing.T) {
	env := newTestEnv(t)
	env.removeFallback(t)

	_, err := env.certificates.Issue(context.Background(), "GOOGE25273ABCD")

	assert.ErrorIs(t, err, templates.ErrTemplateUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
}

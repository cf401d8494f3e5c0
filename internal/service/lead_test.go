package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
)

func newTestLeadService() (*LeadService, *mockLeadRepository, *mockCommunicationRepository) {
	leads := new(mockLeadRepository)
	comms := new(mockCommunicationRepository)
	return NewLeadService(leads, comms, newTestLogger()), leads, comms
}

func TestResolve_SingleMatch(t *testing.T) {
	svc, leads, _ := newTestLeadService()
	ctx := context.Background()

	leads.On("SearchByName", ctx, int64(1), "jane").Return([]domain.Lead{{ID: 7, Name: "Jane Doe"}}, nil)

	lead, err := svc.Resolve(ctx, 1, "jane")
	require.NoError(t, err)
	assert.Equal(t, int64(7), lead.ID)
}

func TestResolve_NoMatch(t *testing.T) {
	svc, leads, _ := newTestLeadService()
	ctx := context.Background()

	leads.On("SearchByName", ctx, int64(1), "ghost").Return([]domain.Lead{}, nil)

	_, err := svc.Resolve(ctx, 1, "ghost")
	var noMatch *domain.NoMatchError
	require.ErrorAs(t, err, &noMatch)
	assert.Equal(t, "ghost", noMatch.Term)
}

func TestResolve_Ambiguous(t *testing.T) {
	svc, leads, _ := newTestLeadService()
	ctx := context.Background()

	matches := []domain.Lead{{ID: 1, Name: "John Smith"}, {ID: 2, Name: "John Doe"}}
	leads.On("SearchByName", ctx, int64(1), "john").Return(matches, nil)

	_, err := svc.Resolve(ctx, 1, "john")
	var ambiguous *domain.AmbiguousMatchError
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.Matches, 2)
}

func TestResolve_RepositoryError(t *testing.T) {
	svc, leads, _ := newTestLeadService()
	ctx := context.Background()

	leads.On("SearchByName", ctx, int64(1), "jane").Return(nil, errors.New("db down"))

	_, err := svc.Resolve(ctx, 1, "jane")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve lead")
}

func TestSearch_EmptyTerm(t *testing.T) {
	svc, leads, _ := newTestLeadService()

	_, err := svc.Search(context.Background(), 1, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	leads.AssertNotCalled(t, "SearchByName", mock.Anything, mock.Anything, mock.Anything)
}

func TestInteractions_RendersAndCounts(t *testing.T) {
	svc, leads, comms := newTestLeadService()
	ctx := context.Background()
	at := time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)

	leads.On("GetByID", ctx, int64(7)).Return(&domain.Lead{ID: 7, Name: "Jane"}, nil)
	comms.On("ListByLead", ctx, int64(7)).Return([]domain.Communication{
		{Channel: domain.ChannelDrewLead, Type: domain.KindCall, Details: map[string]any{"notes": "Intro call"}, CreatedAt: at},
		{Channel: domain.ChannelUserLead, Type: domain.KindSMS, Details: map[string]any{"message_content": "Hi"}, CreatedAt: at},
		{Channel: domain.ChannelUserLead, Type: domain.KindMeeting, Details: map[string]any{}, CreatedAt: at},
	}, nil)

	h, err := svc.Interactions(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, h.DrewCount)
	assert.Equal(t, 2, h.AgentCount)
	require.Len(t, h.Entries, 2)
	assert.Equal(t, "[Drew Call on January 15, 2024 at 02:00 PM] Intro call", h.Entries[0])
	assert.Equal(t, "[Agent SMS on January 15, 2024 at 02:00 PM] Hi", h.Entries[1])
}

func TestInteractions_LeadNotFound(t *testing.T) {
	svc, leads, comms := newTestLeadService()
	ctx := context.Background()

	leads.On("GetByID", ctx, int64(9)).Return(nil, apperrors.ErrNotFound)

	_, err := svc.Interactions(ctx, 9)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Lead not found", appErr.Message)
	comms.AssertNotCalled(t, "ListByLead", mock.Anything, mock.Anything)
}

func TestRenderInteraction(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		comm domain.Communication
		want string
		ok   bool
	}{
		{
			name: "email with subject and body",
			comm: domain.Communication{Channel: domain.ChannelUserLead, Type: domain.KindEmail,
				Details: map[string]any{"subject": "Listing", "body": "See attached"}, CreatedAt: at},
			want: "[Agent Email sent on March 01, 2024 at 09:30 AM]\nSubject: Listing\nContent: See attached",
			ok:   true,
		},
		{
			name: "email fallbacks",
			comm: domain.Communication{Channel: domain.ChannelDrewLead, Type: domain.KindEmail,
				Details: map[string]any{}, CreatedAt: at},
			want: "[Drew Email sent on March 01, 2024 at 09:30 AM]\nSubject: No subject\nContent: No content",
			ok:   true,
		},
		{
			name: "sms prefers message",
			comm: domain.Communication{Channel: domain.ChannelUserLead, Type: domain.KindSMS,
				Details: map[string]any{"message": "a", "message_content": "b"}, CreatedAt: at},
			want: "[Agent SMS on March 01, 2024 at 09:30 AM] a",
			ok:   true,
		},
		{
			name: "sms without content",
			comm: domain.Communication{Channel: domain.ChannelUserLead, Type: domain.KindSMS,
				Details: map[string]any{}, CreatedAt: at},
			want: "[Agent SMS on March 01, 2024 at 09:30 AM] No message content",
			ok:   true,
		},
		{
			name: "call without notes",
			comm: domain.Communication{Channel: domain.ChannelUserLead, Type: domain.KindCall,
				Details: map[string]any{}, CreatedAt: at},
			want: "[Agent Call on March 01, 2024 at 09:30 AM] No notes available",
			ok:   true,
		},
		{
			name: "meeting is skipped",
			comm: domain.Communication{Type: domain.KindMeeting, CreatedAt: at},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RenderInteraction(&tt.comm)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

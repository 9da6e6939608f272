package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/TanaseDoru/BookReviewSite-sub000/pkg/errors"
)

func validPayload() BookPayload {
	return BookPayload{
		Title:       "Dune",
		AuthorID:    "a1",
		Genres:      []string{"sci-fi"},
		Pages:       412,
		PublisherID: "p1",
	}
}

// ============================================================================
// Transition Tests
// ============================================================================

func TestAllowedChangeTransitions_CoversAllStatuses(t *testing.T) {
	transitions := AllowedChangeTransitions()
	for _, s := range ValidChangeStatuses() {
		_, ok := transitions[s]
		assert.True(t, ok, "missing transitions for %q", s)
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(ChangeStatusPending, ChangeStatusAccepted))
	assert.True(t, CanTransition(ChangeStatusPending, ChangeStatusDenied))
	assert.False(t, CanTransition(ChangeStatusAccepted, ChangeStatusDenied))
	assert.False(t, CanTransition(ChangeStatusDenied, ChangeStatusAccepted))
	assert.False(t, CanTransition(ChangeStatusAccepted, ChangeStatusAccepted))
	assert.False(t, CanTransition(ChangeStatusPending, ChangeStatusPending))
}

func TestDecide_TerminalIsConflict(t *testing.T) {
	now := time.Now()
	cr, err := NewChangeRequest("c1", "u1", ChangeKindCreate, nil, validPayload(), now)
	require.NoError(t, err)

	require.NoError(t, cr.Decide(ChangeStatusAccepted, "admin", now))
	assert.Equal(t, ChangeStatusAccepted, cr.Status)
	assert.Equal(t, "admin", *cr.DecidedBy)

	err = cr.Decide(ChangeStatusDenied, "admin", now)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, ChangeStatusAccepted, cr.Status)
}

// ============================================================================
// NewChangeRequest Tests
// ============================================================================

func TestNewChangeRequest_Create(t *testing.T) {
	cr, err := NewChangeRequest("c1", "u1", ChangeKindCreate, nil, validPayload(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, ChangeStatusPending, cr.Status)
	assert.Nil(t, cr.TargetBookID)
	assert.Nil(t, cr.DecidedAt)
}

func TestNewChangeRequest_KindTargetPairing(t *testing.T) {
	target := "b1"
	empty := ""

	_, err := NewChangeRequest("c1", "u1", ChangeKindCreate, &target, validPayload(), time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = NewChangeRequest("c1", "u1", ChangeKindUpdate, nil, validPayload(), time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = NewChangeRequest("c1", "u1", ChangeKindUpdate, &empty, validPayload(), time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = NewChangeRequest("c1", "u1", "delete", nil, validPayload(), time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	cr, err := NewChangeRequest("c1", "u1", ChangeKindUpdate, &target, validPayload(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "b1", *cr.TargetBookID)
}

func TestNewChangeRequest_PayloadRequiredFields(t *testing.T) {
	mutations := map[string]func(p *BookPayload){
		"title":     func(p *BookPayload) { p.Title = "" },
		"author":    func(p *BookPayload) { p.AuthorID = "" },
		"genres":    func(p *BookPayload) { p.Genres = nil },
		"pages":     func(p *BookPayload) { p.Pages = 0 },
		"publisher": func(p *BookPayload) { p.PublisherID = "" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			p := validPayload()
			mutate(&p)
			_, err := NewChangeRequest("c1", "u1", ChangeKindCreate, nil, p, time.Now())
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestNotificationDetails(t *testing.T) {
	cr, err := NewChangeRequest("c1", "u1", ChangeKindCreate, nil, validPayload(), time.Now())
	require.NoError(t, err)
	assert.Contains(t, cr.NotificationDetails(), "awaiting review")

	cr.Status = ChangeStatusDenied
	assert.Contains(t, cr.NotificationDetails(), "denied")
	assert.Equal(t, NotificationChangeDenied, NotificationKindFor(cr.Status))
}

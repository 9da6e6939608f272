package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
	apperrors "github.com/TanaseDoru/BookReviewSite-sub000/pkg/errors"
)

func TestGetBook(t *testing.T) {
	repo := new(mockBookRepository)
	svc := NewBookService(repo, newTestLogger())
	repo.On("GetByID", mock.Anything, "b1").Return(&domain.Book{ID: "b1", AvgRating: 4.25}, nil)
	repo.On("GetByID", mock.Anything, "b2").Return(nil, apperrors.NotFound("book", "b2"))

	b, err := svc.GetBook(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, 4.25, b.AvgRating)

	_, err = svc.GetBook(context.Background(), "b2")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRecomputeRating(t *testing.T) {
	repo := new(mockBookRepository)
	svc := NewBookService(repo, newTestLogger())
	repo.On("RecomputeRating", mock.Anything, "b1").Return(3.6, nil)

	avg, err := svc.RecomputeRating(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, 3.6, avg)
}

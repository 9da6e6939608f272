package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
	"github.com/TanaseDoru/BookReviewSite-sub000/internal/repository"
)

// BookService exposes catalog reads and the rating repair.
type BookService struct {
	repo   repository.BookRepository
	logger *slog.Logger
}

func NewBookService(repo repository.BookRepository, logger *slog.Logger) *BookService {
	return &BookService{
		repo:   repo,
		logger: logger,
	}
}

func (s *BookService) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// RecomputeRating rewrites a book's average rating from its current reviews.
func (s *BookService) RecomputeRating(ctx context.Context, id string) (float64, error) {
	avg, err := s.repo.RecomputeRating(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("recompute rating: %w", err)
	}

	s.logger.InfoContext(ctx, "book rating recomputed",
		slog.String("book_id", id),
		slog.Float64("avg_rating", avg),
	)
	return avg, nil
}

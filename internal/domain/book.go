package domain

import (
	"time"

	apperrors "github.com/TanaseDoru/BookReviewSite-sub000/pkg/errors"
)

// Book is the catalog entry. AvgRating is derived from reviews and is never
// taken from client input.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	AuthorID    string    `json:"authorId"`
	Genres      []string  `json:"genres"`
	Pages       int       `json:"pages"`
	Description string    `json:"description"`
	CoverImage  string    `json:"coverImage"`
	PublisherID string    `json:"publisherId"`
	AvgRating   float64   `json:"avgRating"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BookPayload is the candidate book carried by a change request.
// Description and CoverImage are optional; nil means "not supplied".
type BookPayload struct {
	Title       string   `json:"title"`
	AuthorID    string   `json:"authorId"`
	Genres      []string `json:"genres"`
	Pages       int      `json:"pages"`
	Description *string  `json:"description,omitempty"`
	CoverImage  *string  `json:"coverImage,omitempty"`
	PublisherID string   `json:"publisherId"`
}

// Validate enforces the fields every book write requires.
func (p BookPayload) Validate() error {
	switch {
	case p.Title == "":
		return apperrors.InvalidInput("payload.title is required")
	case p.AuthorID == "":
		return apperrors.InvalidInput("payload.authorId is required")
	case len(p.Genres) == 0:
		return apperrors.InvalidInput("payload.genres must contain at least one genre")
	case p.Pages <= 0:
		return apperrors.InvalidInput("payload.pages must be positive")
	case p.PublisherID == "":
		return apperrors.InvalidInput("payload.publisherId is required")
	}
	return nil
}

// NewBook creates a catalog entry from an accepted create request.
func NewBook(id string, p BookPayload, now time.Time) *Book {
	b := &Book{ID: id, CreatedAt: now}
	b.ApplyPayload(p, now)
	return b
}

// ApplyPayload overwrites the book with the payload. Optional fields that
// were not supplied keep their current value.
func (b *Book) ApplyPayload(p BookPayload, now time.Time) {
	b.Title = p.Title
	b.AuthorID = p.AuthorID
	b.Genres = append([]string(nil), p.Genres...)
	b.Pages = p.Pages
	b.PublisherID = p.PublisherID
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.CoverImage != nil {
		b.CoverImage = *p.CoverImage
	}
	b.UpdatedAt = now
}

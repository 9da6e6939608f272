// Command seed fills a development database with books and reviews. IDs are
// derived from the row index, so re-running it is a no-op for existing rows.
//
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
	"github.com/TanaseDoru/BookReviewSite-sub000/internal/repository/postgres"
	"github.com/TanaseDoru/BookReviewSite-sub000/migrations"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/database"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/logger"
)

type seedConfig struct {
	Postgres       database.PostgresConfig
	Books          int `env:"SEED_BOOKS" envDefault:"200"`
	ReviewsPerBook int `env:"SEED_REVIEWS_PER_BOOK" envDefault:"5"`
	BatchSize      int `env:"SEED_BATCH_SIZE" envDefault:"500"`
}

var (
	bookNamespace   = uuid.MustParse("4d1c9f52-8a3e-4b7f-9d0a-1f6e2c3b5a70")
	reviewNamespace = uuid.MustParse("b8e0a7d4-2c61-4f3b-a5e9-7d2f0c1e6b93")
)

var (
	titleWords = []string{"Silent", "Winter", "Garden", "River", "Empire", "Shadow", "Glass", "Harbor", "Orchard", "Lantern"}
	genres     = []string{"fantasy", "science-fiction", "mystery", "romance", "history", "biography", "poetry", "thriller"}
	blurbs     = []string{
		"A slow burn that pays off in the last act.",
		"Beautiful prose, thin plot.",
		"Could not put it down.",
		"",
		"The middle third drags, but the ending is worth it.",
	}
)

func main() {
	log := logger.New("catalog-seed", "info")

	var cfg seedConfig
	if err := env.Parse(&cfg); err != nil {
		log.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg seedConfig, log *slog.Logger) error {
	pool, err := database.NewPostgresPool(ctx, &cfg.Postgres, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(42, 7))
	now := time.Now().UTC()

	books := make([]*domain.Book, 0, cfg.Books)
	for i := range cfg.Books {
		books = append(books, fakeBook(rng, i, now))
	}
	if err := insertBooks(ctx, pool, books, cfg.BatchSize); err != nil {
		return err
	}
	log.Info("books seeded", slog.Int("count", len(books)))

	reviews := postgres.NewReviewRepository(pool)
	written := 0
	for _, b := range books {
		for j := range cfg.ReviewsPerBook {
			userID := fmt.Sprintf("seed-user-%03d", j)
			reviewID := uuid.NewSHA1(reviewNamespace, []byte(b.ID+"/"+userID)).String()
			patch := fakeReview(rng)

			_, err := reviews.Upsert(ctx, userID, b.ID, func(existing *domain.Review) (*domain.Review, error) {
				if existing != nil {
					return existing, nil
				}
				return domain.NewReview(reviewID, userID, b.ID, patch, now)
			})
			if err != nil {
				return fmt.Errorf("seed review for book %s: %w", b.ID, err)
			}
			written++
		}
	}
	log.Info("reviews seeded", slog.Int("count", written))
	return nil
}

func fakeBook(rng *rand.Rand, i int, now time.Time) *domain.Book {
	title := fmt.Sprintf("The %s %s", titleWords[rng.IntN(len(titleWords))], titleWords[rng.IntN(len(titleWords))])
	description := fmt.Sprintf("Seed book number %d.", i+1)
	return domain.NewBook(
		uuid.NewSHA1(bookNamespace, []byte(fmt.Sprint(i))).String(),
		domain.BookPayload{
			Title:       title,
			AuthorID:    fmt.Sprintf("seed-author-%02d", rng.IntN(40)),
			Genres:      []string{genres[rng.IntN(len(genres))]},
			Pages:       80 + rng.IntN(900),
			Description: &description,
			PublisherID: fmt.Sprintf("seed-publisher-%d", rng.IntN(8)),
		},
		now,
	)
}

func fakeReview(rng *rand.Rand) domain.ReviewPatch {
	rating := domain.MinRating + rng.IntN(domain.MaxRating)
	text := blurbs[rng.IntN(len(blurbs))]
	spoiler := rng.IntN(10) == 0
	return domain.ReviewPatch{Rating: &rating, Description: &text, IsSpoiler: &spoiler}
}

// insertBooks writes books in pipelined batches. Existing ids are skipped.
func insertBooks(ctx context.Context, db database.DBTX, books []*domain.Book, batchSize int) error {
	const q = `INSERT INTO books (id, title, author_id, genres, pages, description, cover_image, publisher_id, avg_rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $9) ON CONFLICT (id) DO NOTHING`

	for start := 0; start < len(books); start += batchSize {
		end := min(start+batchSize, len(books))
		err := database.InTx(ctx, db, func(tx pgx.Tx) error {
			batch := &pgx.Batch{}
			for _, b := range books[start:end] {
				batch.Queue(q, b.ID, b.Title, b.AuthorID, b.Genres, b.Pages, b.Description, b.CoverImage, b.PublisherID, b.CreatedAt)
			}
			return tx.SendBatch(ctx, batch).Close()
		})
		if err != nil {
			return fmt.Errorf("insert books %d..%d: %w", start, end, err)
		}
	}
	return nil
}

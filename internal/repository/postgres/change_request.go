package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/database"
	apperrors "github.com/TanaseDoru/BookReviewSite-sub000/pkg/errors"
)

const changeRequestColumns = `id, requester_id, kind, target_book_id, payload, status, submitted_at, decided_by, decided_at, applied_book_id`

const (
	insertChangeRequestSQL = `INSERT INTO change_requests (id, requester_id, kind, target_book_id, payload, status, submitted_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	selectChangeRequestSQL = `SELECT ` + changeRequestColumns + ` FROM change_requests WHERE id = $1`
	lockChangeRequestSQL   = `SELECT ` + changeRequestColumns + ` FROM change_requests WHERE id = $1 FOR UPDATE`
	listByStatusSQL        = `SELECT ` + changeRequestColumns + ` FROM change_requests WHERE status = $1 ORDER BY submitted_at DESC, seq DESC`
	listByRequesterSQL     = `SELECT ` + changeRequestColumns + ` FROM change_requests WHERE requester_id = $1 ORDER BY submitted_at DESC, seq DESC`

	// The status guard makes the decision a compare-and-set even if a caller
	// skipped the row lock.
	decideChangeRequestSQL = `UPDATE change_requests
		SET status = $2, decided_by = $3, decided_at = $4, applied_book_id = $5
		WHERE id = $1 AND status = 'pending'`
)

// ChangeRequestRepository implements repository.ChangeRequestRepository using PostgreSQL.
type ChangeRequestRepository struct {
	pool database.DBTX
}

// NewChangeRequestRepository creates a new PostgreSQL-backed change request repository.
func NewChangeRequestRepository(pool database.DBTX) *ChangeRequestRepository {
	return &ChangeRequestRepository{pool: pool}
}

// Create inserts a new pending change request.
func (r *ChangeRequestRepository) Create(ctx context.Context, cr *domain.ChangeRequest) (err error) {
	ctx, end := database.TraceQuery(ctx, "ChangeRequestRepository.Create", insertChangeRequestSQL)
	defer func() { end(err) }()

	payload, err := json.Marshal(cr.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = r.pool.Exec(ctx, insertChangeRequestSQL,
		cr.ID,
		cr.RequesterID,
		cr.Kind,
		cr.TargetBookID,
		payload,
		cr.Status,
		cr.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert change request: %w", err)
	}
	return nil
}

// GetByID retrieves a change request by its ID.
func (r *ChangeRequestRepository) GetByID(ctx context.Context, id string) (cr *domain.ChangeRequest, err error) {
	ctx, end := database.TraceQuery(ctx, "ChangeRequestRepository.GetByID", selectChangeRequestSQL)
	defer func() { end(err) }()

	return scanChangeRequest(r.pool.QueryRow(ctx, selectChangeRequestSQL, id), id)
}

// ListByStatus returns requests in status, newest first.
func (r *ChangeRequestRepository) ListByStatus(ctx context.Context, status string) (list []domain.ChangeRequest, err error) {
	ctx, end := database.TraceQuery(ctx, "ChangeRequestRepository.ListByStatus", listByStatusSQL)
	defer func() { end(err) }()

	return r.list(ctx, listByStatusSQL, status)
}

// ListByRequester returns requesterID's requests, newest first.
func (r *ChangeRequestRepository) ListByRequester(ctx context.Context, requesterID string) (list []domain.ChangeRequest, err error) {
	ctx, end := database.TraceQuery(ctx, "ChangeRequestRepository.ListByRequester", listByRequesterSQL)
	defer func() { end(err) }()

	return r.list(ctx, listByRequesterSQL, requesterID)
}

func (r *ChangeRequestRepository) list(ctx context.Context, query string, arg string) ([]domain.ChangeRequest, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	defer rows.Close()

	list := []domain.ChangeRequest{}
	for rows.Next() {
		cr, err := scanChangeRequest(rows, "")
		if err != nil {
			return nil, err
		}
		list = append(list, *cr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change request rows: %w", err)
	}
	return list, nil
}

// Approve accepts a pending request and writes its payload to the catalog in
// the same transaction. A create request inserts a book under newBookID; an
// update request overwrites the target book. If the catalog write fails the
// request stays pending.
func (r *ChangeRequestRepository) Approve(ctx context.Context, id, adminID, newBookID string, now time.Time) (cr *domain.ChangeRequest, book *domain.Book, err error) {
	ctx, end := database.TraceQuery(ctx, "ChangeRequestRepository.Approve", decideChangeRequestSQL)
	defer func() { end(err) }()

	err = database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		cr, err = lockPending(ctx, tx, id, domain.ChangeStatusAccepted, adminID, now)
		if err != nil {
			return err
		}

		switch cr.Kind {
		case domain.ChangeKindCreate:
			book = domain.NewBook(newBookID, cr.Payload, now)
			if err := insertBook(ctx, tx, book); err != nil {
				return err
			}
		case domain.ChangeKindUpdate:
			if cr.TargetBookID == nil {
				return apperrors.InvalidInput("change request " + id + " has no target book")
			}
			book, err = lockBook(ctx, tx, *cr.TargetBookID)
			if err != nil {
				return err
			}
			book.ApplyPayload(cr.Payload, now)
			if err := updateBook(ctx, tx, book); err != nil {
				return err
			}
		default:
			return apperrors.InvalidInput("unknown change request kind " + cr.Kind)
		}

		cr.AppliedBookID = &book.ID
		return storeDecision(ctx, tx, cr)
	})
	if err != nil {
		return nil, nil, err
	}
	return cr, book, nil
}

// Reject denies a pending request without touching the catalog.
func (r *ChangeRequestRepository) Reject(ctx context.Context, id, adminID string, now time.Time) (cr *domain.ChangeRequest, err error) {
	ctx, end := database.TraceQuery(ctx, "ChangeRequestRepository.Reject", decideChangeRequestSQL)
	defer func() { end(err) }()

	err = database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		cr, err = lockPending(ctx, tx, id, domain.ChangeStatusDenied, adminID, now)
		if err != nil {
			return err
		}
		return storeDecision(ctx, tx, cr)
	})
	if err != nil {
		return nil, err
	}
	return cr, nil
}

// lockPending locks the request row and applies the transition in memory.
// It fails with NotFound for an unknown id and Conflict once decided.
func lockPending(ctx context.Context, tx pgx.Tx, id, status, adminID string, now time.Time) (*domain.ChangeRequest, error) {
	cr, err := scanChangeRequest(tx.QueryRow(ctx, lockChangeRequestSQL, id), id)
	if err != nil {
		return nil, err
	}
	if err := cr.Decide(status, adminID, now); err != nil {
		return nil, err
	}
	return cr, nil
}

func storeDecision(ctx context.Context, tx pgx.Tx, cr *domain.ChangeRequest) error {
	tag, err := tx.Exec(ctx, decideChangeRequestSQL, cr.ID, cr.Status, cr.DecidedBy, cr.DecidedAt, cr.AppliedBookID)
	if err != nil {
		return fmt.Errorf("store decision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Conflict("change request " + cr.ID + " is no longer pending")
	}
	return nil
}

func scanChangeRequest(row pgx.Row, id string) (*domain.ChangeRequest, error) {
	var (
		cr      domain.ChangeRequest
		payload []byte
	)
	err := row.Scan(
		&cr.ID,
		&cr.RequesterID,
		&cr.Kind,
		&cr.TargetBookID,
		&payload,
		&cr.Status,
		&cr.SubmittedAt,
		&cr.DecidedBy,
		&cr.DecidedAt,
		&cr.AppliedBookID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("change request", id)
		}
		return nil, fmt.Errorf("scan change request: %w", err)
	}
	if err := json.Unmarshal(payload, &cr.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &cr, nil
}

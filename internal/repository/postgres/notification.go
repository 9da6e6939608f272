package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/database"
	apperrors "github.com/TanaseDoru/BookReviewSite-sub000/pkg/errors"
)

const (
	insertNotificationSQL = `INSERT INTO notifications (id, user_id, kind, details, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`
	listNotificationsSQL = `SELECT id, user_id, kind, details, read, created_at, read_at, count(*) OVER() AS total_count
		FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	markNotificationReadSQL = `UPDATE notifications SET read = true, read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, kind, details, read, created_at, read_at`
)

// NotificationRepository implements repository.NotificationRepository using PostgreSQL.
type NotificationRepository struct {
	pool database.DBTX
}

func NewNotificationRepository(pool database.DBTX) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) (err error) {
	ctx, end := database.TraceQuery(ctx, "NotificationRepository.Create", insertNotificationSQL)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, insertNotificationSQL,
		n.ID,
		n.UserID,
		n.Kind,
		n.Details,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListByUser returns a page of userID's notifications, newest first, with
// the total count.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, page, perPage int) (list []domain.Notification, total int, err error) {
	ctx, end := database.TraceQuery(ctx, "NotificationRepository.ListByUser", listNotificationsSQL)
	defer func() { end(err) }()

	offset := 0
	if page > 1 {
		offset = (page - 1) * perPage
	}

	rows, err := r.pool.Query(ctx, listNotificationsSQL, userID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	list = []domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Details, &n.Read, &n.CreatedAt, &n.ReadAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan notification row: %w", err)
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate notification rows: %w", err)
	}
	return list, total, nil
}

// MarkRead flags the notification as read. The first read time is kept.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string, now time.Time) (n *domain.Notification, err error) {
	ctx, end := database.TraceQuery(ctx, "NotificationRepository.MarkRead", markNotificationReadSQL)
	defer func() { end(err) }()

	var out domain.Notification
	err = r.pool.QueryRow(ctx, markNotificationReadSQL, id, userID, now).Scan(
		&out.ID, &out.UserID, &out.Kind, &out.Details, &out.Read, &out.CreatedAt, &out.ReadAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("notification", id)
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return &out, nil
}

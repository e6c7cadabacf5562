package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleancare/backend/internal/models"
)

const notificationColumns = `
	id, recipient_staff_id, complaint_id, title, message, type, delivered, read, created_at`

type NotificationStore struct {
	pool *pgxpool.Pool
}

func NewNotificationStore(pool *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{pool: pool}
}

func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	query := `
		INSERT INTO notifications (recipient_staff_id, complaint_id, title, message, type, delivered, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, now())
		RETURNING ` + notificationColumns

	var out models.Notification
	err := s.pool.QueryRow(ctx, query,
		n.RecipientStaffID, n.ComplaintID, n.Title, n.Message, n.Type, n.Delivered,
	).Scan(
		&out.ID, &out.RecipientStaffID, &out.ComplaintID, &out.Title, &out.Message,
		&out.Type, &out.Delivered, &out.Read, &out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return &out, nil
}

func (s *NotificationStore) ListByStaff(ctx context.Context, staffID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE recipient_staff_id = $1
		  AND ($2 = false OR read = false)
		ORDER BY id DESC
		LIMIT $3 OFFSET $4`

	rows, err := s.pool.Query(ctx, query, staffID, unreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(
			&n.ID, &n.RecipientStaffID, &n.ComplaintID, &n.Title, &n.Message,
			&n.Type, &n.Delivered, &n.Read, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func (s *NotificationStore) ListUnreadByStaff(ctx context.Context, staffID uuid.UUID) ([]models.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE recipient_staff_id = $1 AND read = false
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query, staffID)
	if err != nil {
		return nil, fmt.Errorf("list unread notifications: %w", err)
	}
	defer rows.Close()

	out := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(
			&n.ID, &n.RecipientStaffID, &n.ComplaintID, &n.Title, &n.Message,
			&n.Type, &n.Delivered, &n.Read, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func (s *NotificationStore) UnreadCount(ctx context.Context, staffID uuid.UUID) (int64, error) {
	query := `
		SELECT count(*)
		FROM notifications
		WHERE recipient_staff_id = $1 AND read = false`

	var count int64
	if err := s.pool.QueryRow(ctx, query, staffID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead is scoped to the recipient so one staff member can never
// acknowledge another's notification.
func (s *NotificationStore) MarkRead(ctx context.Context, staffID uuid.UUID, id int64) error {
	query := `
		UPDATE notifications
		SET read = true
		WHERE id = $1 AND recipient_staff_id = $2`

	tag, err := s.pool.Exec(ctx, query, id, staffID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark notification read: notification %d not found for staff %s", id, staffID)
	}
	return nil
}

func (s *NotificationStore) Delete(ctx context.Context, id int64) error {
	// DELETE of a missing row affects zero rows and is not an error;
	// reconciliation may race its own retries.
	query := `DELETE FROM notifications WHERE id = $1`

	if _, err := s.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"

	"athlos-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationRepository handles database operations for notifications
type NotificationRepository struct {
	db *pgxpool.Pool
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_id, sender_id, type, post_id, comment_id, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		n.ID, n.RecipientID, n.SenderID, n.Type, n.PostID, n.CommentID,
		n.Message, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListByRecipient retrieves notifications for a profile with their senders,
// newest first
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error) {
	sql := `
		SELECT n.id, n.recipient_id, n.sender_id, n.type, n.post_id, n.comment_id,
		       n.message, n.is_read, n.created_at,
		       pr.id, pr.username, pr.profile_image_url, pr.is_verified
		FROM notifications n
		JOIN profiles pr ON pr.id = n.sender_id
		WHERE n.recipient_id = $1
		ORDER BY n.created_at DESC
		LIMIT $2
	`
	var notifications []*models.Notification
	err := withRetry(ctx, func() error {
		rows, err := r.db.Query(ctx, sql, recipientID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		notifications = notifications[:0]
		for rows.Next() {
			var n models.Notification
			var s models.Profile
			err := rows.Scan(
				&n.ID, &n.RecipientID, &n.SenderID, &n.Type, &n.PostID, &n.CommentID,
				&n.Message, &n.IsRead, &n.CreatedAt,
				&s.ID, &s.Username, &s.ProfileImageURL, &s.IsVerified,
			)
			if err != nil {
				return err
			}
			n.Sender = &s
			notifications = append(notifications, &n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead marks a single notification read, scoped to its recipient
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	result, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2`,
		id, recipientID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of a recipient read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE recipient_id = $1 AND is_read = FALSE`,
		recipientID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// CountUnread returns the number of unread notifications for a recipient
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = FALSE`,
		recipientID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

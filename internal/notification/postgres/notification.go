package postgres

import (
	"context"
	"fmt"

	"github.com/frahmantamala/lab-borrowing/internal"
	notificationDatamodel "github.com/frahmantamala/lab-borrowing/internal/core/datamodel/notification"
	"github.com/frahmantamala/lab-borrowing/internal/notification"
	"github.com/jmoiron/sqlx"
)

const selectColumns = `id, user_id, title, message, type, is_read, created_at`

type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	model := notification.ToDataModel(n)
	query := `
		INSERT INTO notifications (user_id, title, message, type, is_read)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id, created_at`

	if err := r.db.QueryRowxContext(ctx, query, model.UserID, model.Title, model.Message, model.Type).
		Scan(&n.ID, &n.CreatedAt); err != nil {
		return fmt.Errorf("insert notification for user %d: %w", n.UserID, err)
	}
	n.IsRead = false
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, filter notification.ListFilter) ([]*notification.Notification, error) {
	query := `SELECT ` + selectColumns + ` FROM notifications WHERE user_id = $1`
	if filter.UnreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	var models []notificationDatamodel.Notification
	if err := r.db.SelectContext(ctx, &models, query, userID, filter.Limit, filter.Offset); err != nil {
		return nil, fmt.Errorf("list notifications for user %d: %w", userID, err)
	}

	items := make([]*notification.Notification, len(models))
	for i := range models {
		items[i] = notification.FromDataModel(&models[i])
	}
	return items, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count unread notifications for user %d: %w", userID, err)
	}
	return count, nil
}

// MarkRead only touches rows owned by userID; anything else reports not found.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	if affected == 0 {
		return internal.ErrNotificationNotFound
	}
	return nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepo struct {
	pool DB
}

type NotificationRecord struct {
	ID        string
	UserID    string
	Text      string
	Link      string
	Category  string
	Read      bool
	CreatedAt time.Time
}

func NewNotificationRepo(pool DB) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

func (r *NotificationRepo) Append(ctx context.Context, userID, text, link, category string, now time.Time) (NotificationRecord, error) {
	if r.pool == nil {
		return NotificationRecord{}, fmt.Errorf("postgres pool is nil")
	}
	userID = strings.TrimSpace(userID)
	text = strings.TrimSpace(text)
	if userID == "" || text == "" {
		return NotificationRecord{}, fmt.Errorf("invalid notification payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	rec := NotificationRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      text,
		Link:      strings.TrimSpace(link),
		Category:  strings.TrimSpace(category),
		CreatedAt: now.UTC(),
	}
	if _, err := r.pool.Exec(ctx, `
INSERT INTO notifications (
	id,
	user_id,
	text,
	link,
	category,
	read,
	created_at
) VALUES ($1, $2, $3, $4, $5, FALSE, $6)
`, rec.ID, rec.UserID, rec.Text, rec.Link, rec.Category, rec.CreatedAt); err != nil {
		return NotificationRecord{}, fmt.Errorf("append notification: %w", err)
	}
	return rec, nil
}

func (r *NotificationRepo) ListForUser(ctx context.Context, userID string, limit int) ([]NotificationRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	id,
	user_id,
	text,
	link,
	category,
	read,
	created_at
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var records []NotificationRecord
	for rows.Next() {
		var rec NotificationRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Text,
			&rec.Link,
			&rec.Category,
			&rec.Read,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return records, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, userID, notificationID string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	userID = strings.TrimSpace(userID)
	notificationID = strings.TrimSpace(notificationID)
	if userID == "" || notificationID == "" {
		return fmt.Errorf("user id and notification id are required")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE notifications
SET read = TRUE
WHERE id = $1
  AND user_id = $2
`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepo) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if cutoff.IsZero() {
		return 0, fmt.Errorf("cutoff is required")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM notifications
WHERE read = TRUE
  AND created_at < $1
`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete read notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

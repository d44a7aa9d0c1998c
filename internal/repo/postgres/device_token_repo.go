package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

var ErrTokenNotFound = errors.New("device token not found")

// DeviceTokenRepo stores push-delivery tokens per user. The unique token
// column doubles as the reverse index from a token value to its owner.
type DeviceTokenRepo struct {
	pool DB
}

func NewDeviceTokenRepo(pool DB) *DeviceTokenRepo {
	return &DeviceTokenRepo{pool: pool}
}

// Register associates a token with a user. A token re-registered by a
// different account moves to that account; it belongs to exactly one user at
// a time.
func (r *DeviceTokenRepo) Register(ctx context.Context, userID, token string, now time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	userID = strings.TrimSpace(userID)
	token = strings.TrimSpace(token)
	if userID == "" || token == "" {
		return fmt.Errorf("user id and token are required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO device_tokens (
	token,
	user_id,
	registered_at,
	updated_at
) VALUES ($1, $2, $3, $3)
ON CONFLICT (token) DO UPDATE SET
	user_id = EXCLUDED.user_id,
	updated_at = EXCLUDED.updated_at
`, token, userID, now.UTC()); err != nil {
		return fmt.Errorf("register device token: %w", err)
	}
	return nil
}

// Remove deletes exactly the given tokens from one user's set. It never
// rewrites the whole set, so it cannot clobber a concurrent registration.
func (r *DeviceTokenRepo) Remove(ctx context.Context, userID string, tokens []string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if len(tokens) == 0 {
		return nil
	}

	if _, err := r.pool.Exec(ctx, `
DELETE FROM device_tokens
WHERE user_id = $1
  AND token = ANY($2)
`, userID, tokens); err != nil {
		return fmt.Errorf("remove device tokens: %w", err)
	}
	return nil
}

func (r *DeviceTokenRepo) TokensForUser(ctx context.Context, userID string) ([]string, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	rows, err := r.pool.Query(ctx, `
SELECT token
FROM device_tokens
WHERE user_id = $1
ORDER BY registered_at
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan device token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate device tokens: %w", err)
	}
	return tokens, nil
}

func (r *DeviceTokenRepo) OwnerOfToken(ctx context.Context, token string) (string, error) {
	if r.pool == nil {
		return "", fmt.Errorf("postgres pool is nil")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("token is required")
	}

	var userID string
	err := r.pool.QueryRow(ctx, `
SELECT user_id
FROM device_tokens
WHERE token = $1
`, token).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("resolve token owner: %w", err)
	}
	return userID, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

var ErrUserNotFound = errors.New("user not found")

const roleAdmin = "ADMIN"

type UserRepo struct {
	pool DB
}

type UserRecord struct {
	ID    string
	Email string
	Name  string
	Role  string
	// NotificationPrefs maps a category to an explicit enable/disable. An
	// absent key means the category is enabled.
	NotificationPrefs map[string]bool
	CreatedAt         time.Time
}

func NewUserRepo(pool DB) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) FindByID(ctx context.Context, userID string) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return UserRecord{}, fmt.Errorf("user id is required")
	}

	rec, err := scanUserRow(r.pool.QueryRow(ctx, `
SELECT
	id,
	email,
	name,
	role,
	notification_prefs,
	created_at
FROM users
WHERE id = $1
`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("find user: %w", err)
	}
	return rec, nil
}

func (r *UserRepo) ListAdmins(ctx context.Context) ([]UserRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	id,
	email,
	name,
	role,
	notification_prefs,
	created_at
FROM users
WHERE role = $1
`, roleAdmin)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var admins []UserRecord
	for rows.Next() {
		rec, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		admins = append(admins, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admins: %w", err)
	}
	return admins, nil
}

// UpdateNotificationPrefs merges the given category flags into the user's
// preference map. Keys not present in prefs keep their stored value.
func (r *UserRepo) UpdateNotificationPrefs(ctx context.Context, userID string, prefs map[string]bool) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if len(prefs) == 0 {
		return nil
	}

	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshal notification prefs: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE users
SET notification_prefs = COALESCE(notification_prefs, '{}'::jsonb) || $2::jsonb
WHERE id = $1
`, userID, string(raw))
	if err != nil {
		return fmt.Errorf("update notification prefs: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUserRow(row pgx.Row) (UserRecord, error) {
	var rec UserRecord
	var prefsRaw []byte
	if err := row.Scan(
		&rec.ID,
		&rec.Email,
		&rec.Name,
		&rec.Role,
		&prefsRaw,
		&rec.CreatedAt,
	); err != nil {
		return UserRecord{}, err
	}
	rec.NotificationPrefs = decodePrefs(prefsRaw)
	return rec, nil
}

func decodePrefs(raw []byte) map[string]bool {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var prefs map[string]bool
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return nil
	}
	return prefs
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

var ErrEnrollmentNotFound = errors.New("enrollment not found")

type EnrollmentRepo struct {
	pool DB
}

type EnrollmentRecord struct {
	ID           string
	BuyerID      string
	CourseID     string
	InstructorID string
	Progress     int
	PricePaid    *int64
	EnrolledAt   time.Time
}

// EnrollmentKey builds the deterministic composite key for a buyer/course
// pair. At most one enrollment can exist per pair.
func EnrollmentKey(buyerID, courseID string) string {
	return strings.TrimSpace(buyerID) + "_" + strings.TrimSpace(courseID)
}

func NewEnrollmentRepo(pool DB) *EnrollmentRepo {
	return &EnrollmentRepo{pool: pool}
}

func (r *EnrollmentRepo) FindByKey(ctx context.Context, buyerID, courseID string) (EnrollmentRecord, error) {
	if r.pool == nil {
		return EnrollmentRecord{}, fmt.Errorf("postgres pool is nil")
	}
	key := EnrollmentKey(buyerID, courseID)
	if key == "_" {
		return EnrollmentRecord{}, fmt.Errorf("buyer id and course id are required")
	}

	rec, err := scanEnrollmentRow(r.pool.QueryRow(ctx, `
SELECT
	id,
	buyer_id,
	course_id,
	instructor_id,
	progress,
	price_paid,
	enrolled_at
FROM enrollments
WHERE id = $1
`, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EnrollmentRecord{}, ErrEnrollmentNotFound
		}
		return EnrollmentRecord{}, fmt.Errorf("find enrollment: %w", err)
	}
	return rec, nil
}

func (r *EnrollmentRepo) ListForBuyer(ctx context.Context, buyerID string) ([]EnrollmentRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	buyerID = strings.TrimSpace(buyerID)
	if buyerID == "" {
		return nil, fmt.Errorf("buyer id is required")
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	id,
	buyer_id,
	course_id,
	instructor_id,
	progress,
	price_paid,
	enrolled_at
FROM enrollments
WHERE buyer_id = $1
ORDER BY enrolled_at DESC
`, buyerID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var records []EnrollmentRecord
	for rows.Next() {
		rec, err := scanEnrollmentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}
	return records, nil
}

func scanEnrollmentRow(row pgx.Row) (EnrollmentRecord, error) {
	var rec EnrollmentRecord
	if err := row.Scan(
		&rec.ID,
		&rec.BuyerID,
		&rec.CourseID,
		&rec.InstructorID,
		&rec.Progress,
		&rec.PricePaid,
		&rec.EnrolledAt,
	); err != nil {
		return EnrollmentRecord{}, err
	}
	return rec, nil
}

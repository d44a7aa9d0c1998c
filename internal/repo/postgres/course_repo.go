package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

var ErrCourseNotFound = errors.New("course not found")

type CourseRepo struct {
	pool DB
}

type CourseRecord struct {
	ID           string
	Title        string
	InstructorID string
	Price        int64
	Currency     string
	CreatedAt    time.Time
}

func NewCourseRepo(pool DB) *CourseRepo {
	return &CourseRepo{pool: pool}
}

func (r *CourseRepo) FindByID(ctx context.Context, courseID string) (CourseRecord, error) {
	if r.pool == nil {
		return CourseRecord{}, fmt.Errorf("postgres pool is nil")
	}
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return CourseRecord{}, fmt.Errorf("course id is required")
	}

	var rec CourseRecord
	err := r.pool.QueryRow(ctx, `
SELECT
	id,
	title,
	instructor_id,
	price,
	currency,
	created_at
FROM courses
WHERE id = $1
`, courseID).Scan(
		&rec.ID,
		&rec.Title,
		&rec.InstructorID,
		&rec.Price,
		&rec.Currency,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CourseRecord{}, ErrCourseNotFound
		}
		return CourseRecord{}, fmt.Errorf("find course: %w", err)
	}
	return rec, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/domain/enums"
)

var ErrPaymentNotFound = errors.New("payment not found")

type PaymentRepo struct {
	pool DB
}

// PaymentRecord is keyed by the gateway's transaction ID. The gateway
// guarantees global uniqueness, which makes re-verification of the same
// transaction an idempotent upsert instead of a duplicate insert.
type PaymentRecord struct {
	ID           string
	BuyerID      string
	InstructorID string
	CourseID     string
	CourseTitle  string
	Amount       int64
	Currency     string
	Status       string
	FraudReview  *FraudReviewRecord
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FraudReviewRecord is embedded in the payment row. A payment without one has
// not been scored yet; callers must not read that as "scored clean".
type FraudReviewRecord struct {
	IsSuspicious bool
	RiskScore    float64
	Reason       string
	CheckedAt    time.Time
	Reviewed     bool
}

type CommitEnrollmentParams struct {
	PaymentID    string
	BuyerID      string
	CourseID     string
	InstructorID string
	CourseTitle  string
	Amount       int64
	Currency     string
	Now          time.Time
}

type CommitOutcome struct {
	PaymentCreated    bool
	EnrollmentCreated bool
	EnrollmentKey     string
}

func NewPaymentRepo(pool DB) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// CommitEnrollment writes the payment row and the enrollment row in one
// transaction. Either both land or neither does. Conflicting keys are treated
// as an already-applied commit, so retried calls converge on the same state.
func (r *PaymentRepo) CommitEnrollment(ctx context.Context, params CommitEnrollmentParams) (CommitOutcome, error) {
	if r.pool == nil {
		return CommitOutcome{}, fmt.Errorf("postgres pool is nil")
	}

	paymentID := strings.TrimSpace(params.PaymentID)
	buyerID := strings.TrimSpace(params.BuyerID)
	courseID := strings.TrimSpace(params.CourseID)
	if paymentID == "" || buyerID == "" || courseID == "" {
		return CommitOutcome{}, fmt.Errorf("invalid commit enrollment payload")
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "XAF"
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	enrollmentKey := EnrollmentKey(buyerID, courseID)
	var out CommitOutcome
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(txCtx, `
INSERT INTO payments (
	id,
	buyer_id,
	instructor_id,
	course_id,
	course_title,
	amount,
	currency,
	status,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
ON CONFLICT (id) DO NOTHING
`, paymentID, buyerID, params.InstructorID, courseID, params.CourseTitle, params.Amount, currency, string(enums.PaymentStatusCompleted), now.UTC())
		if err != nil {
			return fmt.Errorf("upsert payment: %w", err)
		}
		out.PaymentCreated = tag.RowsAffected() == 1

		tag, err = tx.Exec(txCtx, `
INSERT INTO enrollments (
	id,
	buyer_id,
	course_id,
	instructor_id,
	progress,
	price_paid,
	enrolled_at
) VALUES ($1, $2, $3, $4, 0, $5, $6)
ON CONFLICT (id) DO NOTHING
`, enrollmentKey, buyerID, courseID, params.InstructorID, params.Amount, now.UTC())
		if err != nil {
			return fmt.Errorf("upsert enrollment: %w", err)
		}
		out.EnrollmentCreated = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return CommitOutcome{}, err
	}

	out.EnrollmentKey = enrollmentKey
	return out, nil
}

func (r *PaymentRepo) FindByID(ctx context.Context, paymentID string) (PaymentRecord, error) {
	if r.pool == nil {
		return PaymentRecord{}, fmt.Errorf("postgres pool is nil")
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return PaymentRecord{}, fmt.Errorf("payment id is required")
	}

	rec, err := scanPaymentRow(r.pool.QueryRow(ctx, `
SELECT
	id,
	buyer_id,
	instructor_id,
	course_id,
	course_title,
	amount,
	currency,
	status,
	fraud_is_suspicious,
	fraud_risk_score,
	fraud_reason,
	fraud_checked_at,
	fraud_reviewed,
	created_at,
	updated_at
FROM payments
WHERE id = $1
`, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentRecord{}, ErrPaymentNotFound
		}
		return PaymentRecord{}, fmt.Errorf("find payment: %w", err)
	}
	return rec, nil
}

// HasCompletedForBuyer reports whether the buyer has any completed payment
// other than excludeID. Used for the first-transaction fraud feature.
func (r *PaymentRepo) HasCompletedForBuyer(ctx context.Context, buyerID, excludeID string) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}
	buyerID = strings.TrimSpace(buyerID)
	if buyerID == "" {
		return false, fmt.Errorf("buyer id is required")
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1
	FROM payments
	WHERE buyer_id = $1
	  AND id <> $2
	  AND status = $3
)
`, buyerID, strings.TrimSpace(excludeID), string(enums.PaymentStatusCompleted)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check completed payments for buyer: %w", err)
	}
	return exists, nil
}

// MergeFraudReview updates only the fraud columns of an existing payment row,
// never the payment fields themselves, so it cannot race a refund update. The
// fraud_checked_at IS NULL guard makes the merge first-writer-wins: a payment
// is scored at most once, and a duplicate merge is a silent no-op.
func (r *PaymentRepo) MergeFraudReview(ctx context.Context, paymentID string, review FraudReviewRecord) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return fmt.Errorf("payment id is required")
	}
	checkedAt := review.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now().UTC()
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE payments
SET
	fraud_is_suspicious = $2,
	fraud_risk_score = $3,
	fraud_reason = $4,
	fraud_checked_at = $5,
	fraud_reviewed = $6,
	updated_at = NOW()
WHERE id = $1
  AND fraud_checked_at IS NULL
`, paymentID, review.IsSuspicious, review.RiskScore, review.Reason, checkedAt.UTC(), review.Reviewed)
	if err != nil {
		return fmt.Errorf("merge fraud review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM payments WHERE id = $1)
`, paymentID).Scan(&exists); err != nil {
			return fmt.Errorf("merge fraud review: %w", err)
		}
		if !exists {
			return ErrPaymentNotFound
		}
	}
	return nil
}

func scanPaymentRow(row pgx.Row) (PaymentRecord, error) {
	var rec PaymentRecord
	var suspicious *bool
	var riskScore *float64
	var reason *string
	var checkedAt *time.Time
	var reviewed *bool
	if err := row.Scan(
		&rec.ID,
		&rec.BuyerID,
		&rec.InstructorID,
		&rec.CourseID,
		&rec.CourseTitle,
		&rec.Amount,
		&rec.Currency,
		&rec.Status,
		&suspicious,
		&riskScore,
		&reason,
		&checkedAt,
		&reviewed,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return PaymentRecord{}, err
	}

	if checkedAt != nil {
		review := FraudReviewRecord{CheckedAt: checkedAt.UTC()}
		if suspicious != nil {
			review.IsSuspicious = *suspicious
		}
		if riskScore != nil {
			review.RiskScore = *riskScore
		}
		if reason != nil {
			review.Reason = *reason
		}
		if reviewed != nil {
			review.Reviewed = *reviewed
		}
		rec.FraudReview = &review
	}
	return rec, nil
}

package fraud

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/domain/enums"
	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/infra/fraudapi"
	pgrepo "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/repo/postgres"
	notifsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/notifications"
)

var ErrValidation = errors.New("validation error")

type Scorer interface {
	Score(ctx context.Context, in fraudapi.Request) (fraudapi.Verdict, error)
}

type PaymentStore interface {
	HasCompletedForBuyer(ctx context.Context, buyerID, excludeID string) (bool, error)
	MergeFraudReview(ctx context.Context, paymentID string, review pgrepo.FraudReviewRecord) error
}

type UserStore interface {
	FindByID(ctx context.Context, userID string) (pgrepo.UserRecord, error)
}

type Broadcaster interface {
	BroadcastToAdmins(ctx context.Context, b notifsvc.Broadcast) error
}

// Service scores a completed transaction after access has already been
// granted. It is a detective control: a suspicious verdict flags the payment
// for admin review, it never revokes or gates the buyer's access.
type Service struct {
	scorer      Scorer
	payments    PaymentStore
	users       UserStore
	broadcaster Broadcaster
	logger      *zap.Logger
	now         func() time.Time
}

type Dependencies struct {
	Scorer      Scorer
	Payments    PaymentStore
	Users       UserStore
	Broadcaster Broadcaster
}

type ReviewInput struct {
	TransactionID string
	BuyerID       string
	CourseTitle   string
	Amount        int64
}

func NewService(deps Dependencies, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		scorer:      deps.Scorer,
		payments:    deps.Payments,
		users:       deps.Users,
		broadcaster: deps.Broadcaster,
		logger:      logger,
		now:         time.Now,
	}
}

// Review builds the feature vector, asks the classifier for a verdict, merges
// the review into the existing payment row and alerts admins when the verdict
// is suspicious. One attempt only; the caller logs and discards failures.
func (s *Service) Review(ctx context.Context, in ReviewInput) error {
	if s.scorer == nil || s.payments == nil || s.users == nil {
		return fmt.Errorf("fraud dependencies are not configured")
	}

	transactionID := strings.TrimSpace(in.TransactionID)
	buyerID := strings.TrimSpace(in.BuyerID)
	if transactionID == "" || buyerID == "" {
		return ErrValidation
	}

	buyer, err := s.users.FindByID(ctx, buyerID)
	if err != nil {
		return fmt.Errorf("load buyer for fraud features: %w", err)
	}

	hasPrior, err := s.payments.HasCompletedForBuyer(ctx, buyerID, transactionID)
	if err != nil {
		return fmt.Errorf("check prior transactions: %w", err)
	}

	now := s.now().UTC()
	verdict, err := s.scorer.Score(ctx, fraudapi.Request{
		TransactionID: transactionID,
		Amount:        in.Amount,
		CourseTitle:   in.CourseTitle,
		User: fraudapi.UserFeatures{
			ID:                  buyerID,
			AccountAgeInSeconds: int64(now.Sub(buyer.CreatedAt).Seconds()),
			IsFirstTransaction:  !hasPrior,
			EmailDomain:         emailDomain(buyer.Email),
		},
	})
	if err != nil {
		return fmt.Errorf("score transaction: %w", err)
	}

	if err := s.payments.MergeFraudReview(ctx, transactionID, pgrepo.FraudReviewRecord{
		IsSuspicious: verdict.IsSuspicious,
		RiskScore:    verdict.RiskScore,
		Reason:       verdict.Reason,
		CheckedAt:    now,
		Reviewed:     false,
	}); err != nil {
		return fmt.Errorf("merge fraud review: %w", err)
	}

	if !verdict.IsSuspicious || s.broadcaster == nil {
		return nil
	}

	if err := s.broadcaster.BroadcastToAdmins(ctx, notifsvc.Broadcast{
		Title:    "Suspicious transaction flagged",
		Body:     fmt.Sprintf("Transaction %s for %q scored %.0f: %s", transactionID, in.CourseTitle, verdict.RiskScore, verdict.Reason),
		Link:     "/admin/payments/" + transactionID,
		Category: enums.CategoryFinancialAnomalies,
	}); err != nil {
		return fmt.Errorf("broadcast fraud alert: %w", err)
	}
	return nil
}

func emailDomain(email string) string {
	_, domain, found := strings.Cut(strings.TrimSpace(email), "@")
	if !found {
		return ""
	}
	return strings.ToLower(domain)
}

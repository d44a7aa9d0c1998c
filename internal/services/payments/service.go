package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/infra/paygate"
	enrollsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/enrollments"
	fraudsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/fraud"
)

var (
	ErrValidation = errors.New("validation error")
	// ErrVerificationFailed wraps any gateway-side failure; the underlying
	// cause stays reachable through errors.Is/As.
	ErrVerificationFailed = errors.New("payment verification failed")
	// ErrPaymentNotConfirmed means the gateway answered but did not report
	// the transaction as successful. Nothing is written in that case.
	ErrPaymentNotConfirmed = errors.New("payment is not confirmed by the gateway")
)

const defaultFraudTimeout = 30 * time.Second

type GatewayClient interface {
	Verify(ctx context.Context, transactionID string) (paygate.VerifyResult, error)
}

type Committer interface {
	Commit(ctx context.Context, in enrollsvc.CommitInput) (enrollsvc.CommitResult, error)
}

type FraudReviewer interface {
	Review(ctx context.Context, in fraudsvc.ReviewInput) error
}

// Service is the top-level checkout workflow: verify with the gateway, commit
// the enrollment, then hand the transaction to fraud review on a detached
// goroutine that the buyer-facing response never waits on.
type Service struct {
	gateway      GatewayClient
	committer    Committer
	fraud        FraudReviewer
	fraudTimeout time.Duration
	logger       *zap.Logger
}

type Dependencies struct {
	Gateway   GatewayClient
	Committer Committer
	Fraud     FraudReviewer
}

type Config struct {
	FraudTimeout time.Duration
}

type Result struct {
	TransactionID    string
	BuyerID          string
	CourseID         string
	CourseTitle      string
	Amount           int64
	Currency         string
	AlreadyProcessed bool
}

func NewService(deps Dependencies, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.FraudTimeout
	if timeout <= 0 {
		timeout = defaultFraudTimeout
	}

	return &Service{
		gateway:      deps.Gateway,
		committer:    deps.Committer,
		fraud:        deps.Fraud,
		fraudTimeout: timeout,
		logger:       logger,
	}
}

// ProcessPayment is the entry point invoked after a buyer completes checkout.
// callerID identifies the authenticated requester and is only compared
// against the checkout metadata for logging; the metadata remains the
// authority on who bought what.
func (s *Service) ProcessPayment(ctx context.Context, callerID, transactionID string) (Result, error) {
	if s.gateway == nil || s.committer == nil {
		return Result{}, errors.New("payment dependencies are not configured")
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return Result{}, ErrValidation
	}

	verify, err := s.gateway.Verify(ctx, transactionID)
	if err != nil {
		return Result{}, errors.Join(ErrVerificationFailed, err)
	}
	if !verify.Successful() {
		return Result{}, ErrPaymentNotConfirmed
	}

	commit, err := s.committer.Commit(ctx, enrollsvc.CommitInput{
		TransactionID: transactionID,
		BuyerID:       verify.Data.Metadata.UserID,
		CourseID:      verify.Data.Metadata.CourseID,
		Amount:        verify.Data.Amount,
		Currency:      verify.Data.CurrencyCode,
	})
	if err != nil {
		return Result{}, err
	}

	if callerID != "" && callerID != commit.BuyerID {
		// Checkout metadata names a different buyer than the authenticated
		// caller. The metadata wins today; see DESIGN.md on this trust gap.
		s.logger.Warn("checkout metadata buyer differs from caller",
			zap.String("transaction_id", transactionID),
			zap.String("caller_id", callerID),
			zap.String("metadata_buyer_id", commit.BuyerID),
		)
	}

	if commit.AlreadyProcessed {
		// A retried verify converged on rows written by an earlier call. That
		// earlier call owns the fraud review; rescoring here would re-merge the
		// review and re-broadcast a suspicious verdict to admins.
		s.logger.Info("skipping fraud review for already processed transaction",
			zap.String("transaction_id", transactionID),
		)
	} else {
		s.launchFraudReview(commit)
	}

	return Result{
		TransactionID:    transactionID,
		BuyerID:          commit.BuyerID,
		CourseID:         commit.CourseID,
		CourseTitle:      commit.CourseTitle,
		Amount:           commit.Amount,
		Currency:         commit.Currency,
		AlreadyProcessed: commit.AlreadyProcessed,
	}, nil
}

// launchFraudReview detaches the review from the request: it gets its own
// context, a single attempt, and a terminal log-and-discard on any failure.
func (s *Service) launchFraudReview(commit enrollsvc.CommitResult) {
	if s.fraud == nil {
		return
	}

	in := fraudsvc.ReviewInput{
		TransactionID: commit.PaymentID,
		BuyerID:       commit.BuyerID,
		CourseTitle:   commit.CourseTitle,
		Amount:        commit.Amount,
	}
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("fraud review panicked",
					zap.String("transaction_id", in.TransactionID),
					zap.Any("panic", rec),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.fraudTimeout)
		defer cancel()

		if err := s.fraud.Review(ctx, in); err != nil {
			s.logger.Warn("fraud review failed",
				zap.String("transaction_id", in.TransactionID),
				zap.Error(err),
			)
		}
	}()
}

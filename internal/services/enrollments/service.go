package enrollments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pgrepo "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/repo/postgres"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrIncompleteMetadata = errors.New("transaction metadata is missing buyer or course")
	ErrBuyerNotFound      = errors.New("buyer not found")
	ErrCourseNotFound     = errors.New("course not found")
)

type PaymentStore interface {
	CommitEnrollment(ctx context.Context, params pgrepo.CommitEnrollmentParams) (pgrepo.CommitOutcome, error)
}

type UserStore interface {
	FindByID(ctx context.Context, userID string) (pgrepo.UserRecord, error)
}

type CourseStore interface {
	FindByID(ctx context.Context, courseID string) (pgrepo.CourseRecord, error)
}

// Service turns one verified transaction into a payment record plus an
// enrollment record. It does not talk to the gateway: the caller must already
// hold a gateway-confirmed result. Notifications and fraud scoring are also
// the caller's concern, keeping the commit's failure surface minimal.
type Service struct {
	payments PaymentStore
	users    UserStore
	courses  CourseStore
	now      func() time.Time
}

type Dependencies struct {
	Payments PaymentStore
	Users    UserStore
	Courses  CourseStore
}

type CommitInput struct {
	TransactionID string
	BuyerID       string
	CourseID      string
	Amount        int64
	Currency      string
}

type CommitResult struct {
	PaymentID     string
	EnrollmentKey string
	BuyerID       string
	CourseID      string
	InstructorID  string
	CourseTitle   string
	Amount        int64
	Currency      string
	// AlreadyProcessed is set when both rows existed before this call, i.e. a
	// retried commit converged on the prior state.
	AlreadyProcessed bool
}

func NewService(deps Dependencies) *Service {
	return &Service{
		payments: deps.Payments,
		users:    deps.Users,
		courses:  deps.Courses,
		now:      time.Now,
	}
}

func (s *Service) Commit(ctx context.Context, in CommitInput) (CommitResult, error) {
	if s.payments == nil || s.users == nil || s.courses == nil {
		return CommitResult{}, fmt.Errorf("enrollment dependencies are not configured")
	}

	transactionID := strings.TrimSpace(in.TransactionID)
	if transactionID == "" {
		return CommitResult{}, ErrValidation
	}

	buyerID := strings.TrimSpace(in.BuyerID)
	courseID := strings.TrimSpace(in.CourseID)
	if buyerID == "" || courseID == "" {
		return CommitResult{}, ErrIncompleteMetadata
	}

	if _, err := s.users.FindByID(ctx, buyerID); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return CommitResult{}, ErrBuyerNotFound
		}
		return CommitResult{}, err
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrCourseNotFound) {
			return CommitResult{}, ErrCourseNotFound
		}
		return CommitResult{}, err
	}

	amount := in.Amount
	if amount <= 0 {
		amount = course.Price
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = course.Currency
	}

	outcome, err := s.payments.CommitEnrollment(ctx, pgrepo.CommitEnrollmentParams{
		PaymentID:    transactionID,
		BuyerID:      buyerID,
		CourseID:     courseID,
		InstructorID: course.InstructorID,
		CourseTitle:  course.Title,
		Amount:       amount,
		Currency:     currency,
		Now:          s.now().UTC(),
	})
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		PaymentID:        transactionID,
		EnrollmentKey:    outcome.EnrollmentKey,
		BuyerID:          buyerID,
		CourseID:         courseID,
		InstructorID:     course.InstructorID,
		CourseTitle:      course.Title,
		Amount:           amount,
		Currency:         currency,
		AlreadyProcessed: !outcome.PaymentCreated && !outcome.EnrollmentCreated,
	}, nil
}

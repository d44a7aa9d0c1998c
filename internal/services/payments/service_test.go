package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/infra/paygate"
	enrollsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/enrollments"
	fraudsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/fraud"
)

type gatewayStub struct {
	result paygate.VerifyResult
	err    error
	calls  int
}

func (g *gatewayStub) Verify(_ context.Context, _ string) (paygate.VerifyResult, error) {
	g.calls++
	return g.result, g.err
}

type committerStub struct {
	result enrollsvc.CommitResult
	err    error
	calls  int
	lastIn enrollsvc.CommitInput
}

func (c *committerStub) Commit(_ context.Context, in enrollsvc.CommitInput) (enrollsvc.CommitResult, error) {
	c.calls++
	c.lastIn = in
	return c.result, c.err
}

type fraudStub struct {
	err     error
	block   chan struct{}
	started chan fraudsvc.ReviewInput
}

func newFraudStub() *fraudStub {
	return &fraudStub{started: make(chan fraudsvc.ReviewInput, 1)}
}

func (f *fraudStub) Review(ctx context.Context, in fraudsvc.ReviewInput) error {
	f.started <- in
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func confirmedVerifyResult(txnID, buyerID, courseID string) paygate.VerifyResult {
	return paygate.VerifyResult{
		Status: "success",
		Data: paygate.TransactionData{
			Status:       "successful",
			ID:           txnID,
			Amount:       5000,
			CurrencyCode: "XAF",
			Metadata: paygate.Metadata{
				UserID:   buyerID,
				CourseID: courseID,
			},
		},
	}
}

func TestProcessPaymentCommitsAndReturnsResult(t *testing.T) {
	gateway := &gatewayStub{result: confirmedVerifyResult("tx-1", "buyer-1", "course-1")}
	committer := &committerStub{result: enrollsvc.CommitResult{
		PaymentID:     "tx-1",
		EnrollmentKey: "buyer-1_course-1",
		BuyerID:       "buyer-1",
		CourseID:      "course-1",
		CourseTitle:   "Intro to Accounting",
		Amount:        5000,
		Currency:      "XAF",
	}}
	fraud := newFraudStub()

	svc := NewService(Dependencies{
		Gateway:   gateway,
		Committer: committer,
		Fraud:     fraud,
	}, Config{}, nil)

	result, err := svc.ProcessPayment(context.Background(), "buyer-1", "tx-1")
	if err != nil {
		t.Fatalf("process payment: %v", err)
	}

	if result.TransactionID != "tx-1" || result.BuyerID != "buyer-1" || result.CourseID != "course-1" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.AlreadyProcessed {
		t.Fatalf("fresh commit must not be already processed")
	}
	if committer.lastIn.BuyerID != "buyer-1" || committer.lastIn.CourseID != "course-1" {
		t.Fatalf("commit input must come from gateway metadata: %+v", committer.lastIn)
	}

	select {
	case in := <-fraud.started:
		if in.TransactionID != "tx-1" || in.BuyerID != "buyer-1" {
			t.Fatalf("unexpected fraud review input: %+v", in)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("fraud review was never started")
	}
}

func TestProcessPaymentWrapsGatewayFailures(t *testing.T) {
	gatewayErr := &paygate.APIError{StatusCode: 502, Status: "502 Bad Gateway"}
	gateway := &gatewayStub{err: gatewayErr}
	committer := &committerStub{}

	svc := NewService(Dependencies{
		Gateway:   gateway,
		Committer: committer,
	}, Config{}, nil)

	_, err := svc.ProcessPayment(context.Background(), "buyer-1", "tx-1")
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
	var apiErr *paygate.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("underlying gateway error must stay reachable, got %v", err)
	}
	if committer.calls != 0 {
		t.Fatalf("nothing must be committed on gateway failure")
	}
}

func TestProcessPaymentRejectsUnconfirmedTransaction(t *testing.T) {
	result := confirmedVerifyResult("tx-1", "buyer-1", "course-1")
	result.Data.Status = "pending"
	gateway := &gatewayStub{result: result}
	committer := &committerStub{}

	svc := NewService(Dependencies{
		Gateway:   gateway,
		Committer: committer,
	}, Config{}, nil)

	_, err := svc.ProcessPayment(context.Background(), "buyer-1", "tx-1")
	if !errors.Is(err, ErrPaymentNotConfirmed) {
		t.Fatalf("expected ErrPaymentNotConfirmed, got %v", err)
	}
	if committer.calls != 0 {
		t.Fatalf("nothing must be committed for an unconfirmed transaction")
	}
}

func TestProcessPaymentRejectsBlankTransactionID(t *testing.T) {
	gateway := &gatewayStub{}
	committer := &committerStub{}

	svc := NewService(Dependencies{
		Gateway:   gateway,
		Committer: committer,
	}, Config{}, nil)

	_, err := svc.ProcessPayment(context.Background(), "buyer-1", "   ")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if gateway.calls != 0 {
		t.Fatalf("gateway must not be called for a blank transaction id")
	}
}

func TestProcessPaymentDoesNotRescoreProcessedTransaction(t *testing.T) {
	gateway := &gatewayStub{result: confirmedVerifyResult("tx-1", "buyer-1", "course-1")}
	committer := &committerStub{result: enrollsvc.CommitResult{
		PaymentID:        "tx-1",
		BuyerID:          "buyer-1",
		CourseID:         "course-1",
		AlreadyProcessed: true,
	}}
	fraud := newFraudStub()

	svc := NewService(Dependencies{
		Gateway:   gateway,
		Committer: committer,
		Fraud:     fraud,
	}, Config{}, nil)

	for i := 0; i < 2; i++ {
		result, err := svc.ProcessPayment(context.Background(), "buyer-1", "tx-1")
		if err != nil {
			t.Fatalf("process payment: %v", err)
		}
		if !result.AlreadyProcessed {
			t.Fatalf("retried commit must report already processed")
		}
	}

	select {
	case in := <-fraud.started:
		t.Fatalf("retried verify must not relaunch the fraud review, got %+v", in)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestProcessPaymentDoesNotWaitForFraudReview(t *testing.T) {
	gateway := &gatewayStub{result: confirmedVerifyResult("tx-1", "buyer-1", "course-1")}
	committer := &committerStub{result: enrollsvc.CommitResult{
		PaymentID: "tx-1",
		BuyerID:   "buyer-1",
		CourseID:  "course-1",
	}}
	fraud := newFraudStub()
	fraud.block = make(chan struct{})
	defer close(fraud.block)

	svc := NewService(Dependencies{
		Gateway:   gateway,
		Committer: committer,
		Fraud:     fraud,
	}, Config{}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := svc.ProcessPayment(context.Background(), "buyer-1", "tx-1"); err != nil {
			t.Errorf("process payment: %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("response must not wait on the fraud review")
	}
}

func TestProcessPaymentSwallowsFraudReviewErrors(t *testing.T) {
	gateway := &gatewayStub{result: confirmedVerifyResult("tx-1", "buyer-1", "course-1")}
	committer := &committerStub{result: enrollsvc.CommitResult{
		PaymentID: "tx-1",
		BuyerID:   "buyer-1",
		CourseID:  "course-1",
	}}
	fraud := newFraudStub()
	fraud.err = errors.New("classifier down")

	svc := NewService(Dependencies{
		Gateway:   gateway,
		Committer: committer,
		Fraud:     fraud,
	}, Config{}, nil)

	if _, err := svc.ProcessPayment(context.Background(), "buyer-1", "tx-1"); err != nil {
		t.Fatalf("fraud failure must not fail the payment: %v", err)
	}

	select {
	case <-fraud.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("fraud review was never started")
	}
}

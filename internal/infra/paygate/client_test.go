package paygate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVerifyFailsFastWithPlaceholderSecret(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	for _, secret := range []string{"", "change-me", "your-secret-key"} {
		client := NewClient(server.URL, secret, server.Client())

		_, err := client.Verify(context.Background(), "tx-1")
		if !errors.Is(err, ErrNotConfigured) {
			t.Fatalf("secret %q: expected ErrNotConfigured, got %v", secret, err)
		}
	}
	if requests != 0 {
		t.Fatalf("no request may reach the gateway with a placeholder secret, got %d", requests)
	}
}

func TestVerifySendsBearerAndParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/tx-42" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_123" {
			t.Errorf("unexpected authorization header: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "success",
			"data": {
				"status": "successful",
				"id": "tx-42",
				"amount": 5000,
				"currency_code": "XAF",
				"metadata": {"userId": "buyer-1", "courseId": "course-1"}
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_123", server.Client())

	result, err := client.Verify(context.Background(), "tx-42")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if !result.Successful() {
		t.Fatalf("expected a successful verdict: %+v", result)
	}
	if result.Data.Amount != 5000 || result.Data.CurrencyCode != "XAF" {
		t.Fatalf("unexpected transaction data: %+v", result.Data)
	}
	if result.Data.Metadata.UserID != "buyer-1" || result.Data.Metadata.CourseID != "course-1" {
		t.Fatalf("unexpected metadata: %+v", result.Data.Metadata)
	}
}

func TestVerifyReturnsAPIErrorOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_123", server.Client())

	_, err := client.Verify(context.Background(), "tx-missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status code: %d", apiErr.StatusCode)
	}
}

func TestVerifyTreatsPendingStatusAsNotSuccessful(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "success", "data": {"status": "pending", "id": "tx-1"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_123", server.Client())

	result, err := client.Verify(context.Background(), "tx-1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Successful() {
		t.Fatalf("a pending transaction must not count as successful")
	}
}

func TestVerifyRejectsBlankTransactionID(t *testing.T) {
	client := NewClient("https://gateway.example.test", "sk_test_123", nil)

	if _, err := client.Verify(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for blank transaction id")
	}
}

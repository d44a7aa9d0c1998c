package fraudapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestScorePostsFeatureVectorAndParsesVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected content type: %s", got)
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.TransactionID != "tx-1" || req.User.EmailDomain != "example.cm" {
			t.Errorf("unexpected request payload: %+v", req)
		}
		if !req.User.IsFirstTransaction {
			t.Errorf("expected first-transaction flag to survive serialization")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"isSuspicious": true, "riskScore": 91.5, "reason": "velocity"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client())

	verdict, err := client.Score(context.Background(), Request{
		TransactionID: "tx-1",
		Amount:        250000,
		CourseTitle:   "Intro to Accounting",
		User: UserFeatures{
			ID:                  "buyer-1",
			AccountAgeInSeconds: 3600,
			IsFirstTransaction:  true,
			EmailDomain:         "example.cm",
		},
	})
	if err != nil {
		t.Fatalf("score: %v", err)
	}

	if !verdict.IsSuspicious || verdict.RiskScore != 91.5 || verdict.Reason != "velocity" {
		t.Fatalf("unexpected verdict: %+v", verdict)
	}
}

func TestScoreFailsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client())

	if _, err := client.Score(context.Background(), Request{TransactionID: "tx-1"}); err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
}

func TestScoreFailsWithoutEndpoint(t *testing.T) {
	client := NewClient("", nil)

	if _, err := client.Score(context.Background(), Request{TransactionID: "tx-1"}); err == nil {
		t.Fatalf("expected error when endpoint is not configured")
	}
}

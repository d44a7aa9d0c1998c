package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/domain/enums"
	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/infra/fcm"
	pgrepo "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/repo/postgres"
)

type notificationStoreStub struct {
	appended []pgrepo.NotificationRecord
	err      error
}

func (s *notificationStoreStub) Append(_ context.Context, userID, text, link, category string, now time.Time) (pgrepo.NotificationRecord, error) {
	if s.err != nil {
		return pgrepo.NotificationRecord{}, s.err
	}
	rec := pgrepo.NotificationRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      text,
		Link:      link,
		Category:  category,
		CreatedAt: now,
	}
	s.appended = append(s.appended, rec)
	return rec, nil
}

type tokenRegistryStub struct {
	tokens  map[string][]string
	removed map[string][][]string
}

func newTokenRegistryStub() *tokenRegistryStub {
	return &tokenRegistryStub{
		tokens:  make(map[string][]string),
		removed: make(map[string][][]string),
	}
}

func (s *tokenRegistryStub) TokensForUser(_ context.Context, userID string) ([]string, error) {
	return s.tokens[userID], nil
}

func (s *tokenRegistryStub) OwnerOfToken(_ context.Context, token string) (string, error) {
	for owner, toks := range s.tokens {
		for _, t := range toks {
			if t == token {
				return owner, nil
			}
		}
	}
	return "", pgrepo.ErrTokenNotFound
}

func (s *tokenRegistryStub) Remove(_ context.Context, userID string, tokens []string) error {
	s.removed[userID] = append(s.removed[userID], tokens)
	return nil
}

type pusherStub struct {
	results []fcm.SendResult
	err     error
	calls   int
	last    []string
}

func (p *pusherStub) SendMulticast(_ context.Context, tokens []string, _ fcm.Payload) ([]fcm.SendResult, error) {
	p.calls++
	p.last = tokens
	if p.err != nil {
		return nil, p.err
	}
	if p.results != nil {
		return p.results, nil
	}
	results := make([]fcm.SendResult, 0, len(tokens))
	for _, token := range tokens {
		results = append(results, fcm.SendResult{Token: token, Success: true})
	}
	return results, nil
}

type adminDirectoryStub struct {
	admins []pgrepo.UserRecord
}

func (s *adminDirectoryStub) ListAdmins(_ context.Context) ([]pgrepo.UserRecord, error) {
	return s.admins, nil
}

func TestNotifyUserAppendsRecordEvenWhenPushFails(t *testing.T) {
	store := &notificationStoreStub{}
	registry := newTokenRegistryStub()
	registry.tokens["user-1"] = []string{"token-a"}
	pusher := &pusherStub{err: errors.New("fcm unreachable")}

	svc := NewService(Dependencies{
		Store:    store,
		Registry: registry,
		Pusher:   pusher,
	}, Config{}, nil)

	out, err := svc.NotifyUser(context.Background(), "user-1", Message{Text: "Welcome aboard"})
	if err != nil {
		t.Fatalf("push outage must not fail the dispatch: %v", err)
	}
	if len(store.appended) != 1 {
		t.Fatalf("in-app record must be appended, got %d", len(store.appended))
	}
	if out.NotificationID == "" {
		t.Fatalf("outcome must carry the notification id")
	}
	if out.PushDelivered != 0 {
		t.Fatalf("no push was delivered, got %d", out.PushDelivered)
	}
}

func TestNotifyUserSucceedsWithZeroTokens(t *testing.T) {
	store := &notificationStoreStub{}
	registry := newTokenRegistryStub()
	pusher := &pusherStub{}

	svc := NewService(Dependencies{
		Store:    store,
		Registry: registry,
		Pusher:   pusher,
	}, Config{}, nil)

	out, err := svc.NotifyUser(context.Background(), "user-1", Message{Text: "No devices yet"})
	if err != nil {
		t.Fatalf("notify without devices: %v", err)
	}
	if pusher.calls != 0 {
		t.Fatalf("push must not be attempted without tokens")
	}
	if out.TokensTargeted != 0 {
		t.Fatalf("unexpected token count: %d", out.TokensTargeted)
	}
}

func TestNotifyUserFailsWhenStoreAppendFails(t *testing.T) {
	store := &notificationStoreStub{err: errors.New("insert failed")}
	svc := NewService(Dependencies{Store: store}, Config{}, nil)

	if _, err := svc.NotifyUser(context.Background(), "user-1", Message{Text: "hello"}); err == nil {
		t.Fatalf("append failure must fail the dispatch")
	}
}

func TestNotifyUserRemovesOnlyUnregisteredTokens(t *testing.T) {
	store := &notificationStoreStub{}
	registry := newTokenRegistryStub()
	registry.tokens["user-1"] = []string{"token-live", "token-dead", "token-flaky"}
	pusher := &pusherStub{results: []fcm.SendResult{
		{Token: "token-live", Success: true},
		{Token: "token-dead", Unregistered: true},
		{Token: "token-flaky", Err: errors.New("internal")},
	}}

	svc := NewService(Dependencies{
		Store:    store,
		Registry: registry,
		Pusher:   pusher,
	}, Config{}, nil)

	out, err := svc.NotifyUser(context.Background(), "user-1", Message{Text: "Course updated"})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	if out.PushDelivered != 1 {
		t.Fatalf("unexpected delivered count: %d", out.PushDelivered)
	}
	if out.StaleRemoved != 1 {
		t.Fatalf("only the unregistered token may be removed, got %d", out.StaleRemoved)
	}
	removals := registry.removed["user-1"]
	if len(removals) != 1 || len(removals[0]) != 1 || removals[0][0] != "token-dead" {
		t.Fatalf("unexpected removals: %+v", removals)
	}
}

func TestBroadcastToAdminsHonorsPreferenceDefaults(t *testing.T) {
	store := &notificationStoreStub{}
	admins := &adminDirectoryStub{admins: []pgrepo.UserRecord{
		{ID: "admin-default"},
		{ID: "admin-enabled", NotificationPrefs: map[string]bool{"financial_anomalies": true}},
		{ID: "admin-muted", NotificationPrefs: map[string]bool{"financial_anomalies": false}},
	}}

	svc := NewService(Dependencies{
		Store:  store,
		Admins: admins,
	}, Config{}, nil)

	err := svc.BroadcastToAdmins(context.Background(), Broadcast{
		Title:    "Suspicious transaction flagged",
		Body:     "Transaction tx-1 scored 90",
		Category: enums.CategoryFinancialAnomalies,
	})
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	recipients := make(map[string]bool)
	for _, rec := range store.appended {
		recipients[rec.UserID] = true
	}
	if !recipients["admin-default"] || !recipients["admin-enabled"] {
		t.Fatalf("absent or true preference keys must receive the broadcast: %+v", recipients)
	}
	if recipients["admin-muted"] {
		t.Fatalf("explicitly disabled category must be skipped")
	}
}

func TestBroadcastToAdminsGeneralBypassesFiltering(t *testing.T) {
	store := &notificationStoreStub{}
	admins := &adminDirectoryStub{admins: []pgrepo.UserRecord{
		{ID: "admin-muted-everything", NotificationPrefs: map[string]bool{
			"general":             false,
			"financial_anomalies": false,
			"course_activity":     false,
		}},
	}}

	svc := NewService(Dependencies{
		Store:  store,
		Admins: admins,
	}, Config{}, nil)

	err := svc.BroadcastToAdmins(context.Background(), Broadcast{
		Title:    "Maintenance window",
		Body:     "Platform maintenance tonight",
		Category: enums.CategoryGeneral,
	})
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	if len(store.appended) != 1 {
		t.Fatalf("general broadcasts cannot be muted, got %d records", len(store.appended))
	}
}

func TestNotifyUserRejectsBlankText(t *testing.T) {
	svc := NewService(Dependencies{Store: &notificationStoreStub{}}, Config{}, nil)

	if _, err := svc.NotifyUser(context.Background(), "user-1", Message{Text: "   "}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

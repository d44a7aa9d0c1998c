package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/domain/enums"
	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/infra/fcm"
	pgrepo "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/repo/postgres"
)

var ErrValidation = errors.New("validation error")

const defaultTitle = "Ndaraa Afrique"

type NotificationStore interface {
	Append(ctx context.Context, userID, text, link, category string, now time.Time) (pgrepo.NotificationRecord, error)
}

type TokenRegistry interface {
	TokensForUser(ctx context.Context, userID string) ([]string, error)
	OwnerOfToken(ctx context.Context, token string) (string, error)
	Remove(ctx context.Context, userID string, tokens []string) error
}

type Pusher interface {
	SendMulticast(ctx context.Context, tokens []string, payload fcm.Payload) ([]fcm.SendResult, error)
}

type AdminDirectory interface {
	ListAdmins(ctx context.Context) ([]pgrepo.UserRecord, error)
}

// Service persists in-app notification records and drives best-effort push
// delivery. The in-app record and the push are two independent side effects
// of one dispatch: a push-gateway outage degrades to in-app-only delivery.
type Service struct {
	store    NotificationStore
	registry TokenRegistry
	pusher   Pusher
	admins   AdminDirectory
	icon     string
	logger   *zap.Logger
	now      func() time.Time
}

type Dependencies struct {
	Store    NotificationStore
	Registry TokenRegistry
	Pusher   Pusher
	Admins   AdminDirectory
}

type Config struct {
	Icon string
}

type Message struct {
	Title    string
	Text     string
	Link     string
	Category enums.NotificationCategory
}

type Broadcast struct {
	Title    string
	Body     string
	Link     string
	Category enums.NotificationCategory
}

type DeliveryOutcome struct {
	NotificationID string
	TokensTargeted int
	PushDelivered  int
	StaleRemoved   int
}

func NewService(deps Dependencies, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:    deps.Store,
		registry: deps.Registry,
		pusher:   deps.Pusher,
		admins:   deps.Admins,
		icon:     cfg.Icon,
		logger:   logger,
		now:      time.Now,
	}
}

// NotifyUser appends the in-app record first; that write is the durability
// guarantee and the only step that can fail the call. Push delivery and token
// cleanup afterwards are best effort and only logged.
func (s *Service) NotifyUser(ctx context.Context, userID string, msg Message) (DeliveryOutcome, error) {
	if s.store == nil {
		return DeliveryOutcome{}, fmt.Errorf("notification store is nil")
	}
	userID = strings.TrimSpace(userID)
	text := strings.TrimSpace(msg.Text)
	if userID == "" || text == "" {
		return DeliveryOutcome{}, ErrValidation
	}
	category := msg.Category
	if category == "" {
		category = enums.CategoryGeneral
	}

	rec, err := s.store.Append(ctx, userID, text, msg.Link, string(category), s.now().UTC())
	if err != nil {
		return DeliveryOutcome{}, err
	}
	out := DeliveryOutcome{NotificationID: rec.ID}

	if s.registry == nil || s.pusher == nil {
		return out, nil
	}

	tokens, err := s.registry.TokensForUser(ctx, userID)
	if err != nil {
		s.logger.Warn("read device tokens failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return out, nil
	}
	if len(tokens) == 0 {
		return out, nil
	}
	out.TokensTargeted = len(tokens)

	title := strings.TrimSpace(msg.Title)
	if title == "" {
		title = defaultTitle
	}
	results, err := s.pusher.SendMulticast(ctx, tokens, fcm.Payload{
		Title: title,
		Body:  text,
		Icon:  s.icon,
		Link:  msg.Link,
	})
	if err != nil {
		s.logger.Warn("push delivery failed",
			zap.String("user_id", userID),
			zap.Int("tokens", len(tokens)),
			zap.Error(err),
		)
		return out, nil
	}

	stale := make(map[string][]string)
	for _, result := range results {
		if result.Success {
			out.PushDelivered++
			continue
		}
		if !result.Unregistered {
			// Transient failure; the token gets another chance on the next
			// dispatch.
			continue
		}
		owner, err := s.registry.OwnerOfToken(ctx, result.Token)
		if err != nil {
			if !errors.Is(err, pgrepo.ErrTokenNotFound) {
				s.logger.Warn("resolve stale token owner failed", zap.Error(err))
			}
			continue
		}
		stale[owner] = append(stale[owner], result.Token)
	}

	// One removal per owning user, so two concurrent cleanup passes cannot
	// interleave partial writes on the same token set.
	for owner, toks := range stale {
		if err := s.registry.Remove(ctx, owner, toks); err != nil {
			s.logger.Warn("remove stale tokens failed",
				zap.String("user_id", owner),
				zap.Int("tokens", len(toks)),
				zap.Error(err),
			)
			continue
		}
		out.StaleRemoved += len(toks)
	}

	return out, nil
}

// BroadcastToAdmins delivers to every admin whose preference map does not
// explicitly disable the category. General notices bypass filtering entirely.
func (s *Service) BroadcastToAdmins(ctx context.Context, b Broadcast) error {
	if s.admins == nil {
		return fmt.Errorf("admin directory is nil")
	}
	if strings.TrimSpace(b.Title) == "" || strings.TrimSpace(b.Body) == "" {
		return ErrValidation
	}
	category := b.Category
	if category == "" {
		category = enums.CategoryGeneral
	}

	admins, err := s.admins.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("list admin recipients: %w", err)
	}

	for _, admin := range admins {
		if !categoryEnabled(admin.NotificationPrefs, category) {
			continue
		}
		if _, err := s.NotifyUser(ctx, admin.ID, Message{
			Title:    b.Title,
			Text:     b.Body,
			Link:     b.Link,
			Category: category,
		}); err != nil {
			s.logger.Warn("admin notification failed",
				zap.String("admin_id", admin.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// categoryEnabled treats an absent key as enabled; only an explicit false
// disables a category, and general is never filterable.
func categoryEnabled(prefs map[string]bool, category enums.NotificationCategory) bool {
	if category == enums.CategoryGeneral {
		return true
	}
	enabled, ok := prefs[string(category)]
	if !ok {
		return true
	}
	return enabled
}

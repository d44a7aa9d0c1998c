package fcm

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type Payload struct {
	Title string
	Body  string
	Icon  string
	Link  string
}

// SendResult is the per-token outcome of one multicast send, in input order.
// Unregistered marks a token the gateway reports as permanently invalid; only
// those are eligible for registry cleanup. Every other failure is transient.
type SendResult struct {
	Token        string
	Success      bool
	Unregistered bool
	Err          error
}

type Client struct {
	messaging *messaging.Client
}

func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	if strings.TrimSpace(credentialsFile) == "" {
		return nil, fmt.Errorf("fcm credentials file is required")
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("create firebase app: %w", err)
	}
	mc, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("create messaging client: %w", err)
	}
	return &Client{messaging: mc}, nil
}

func (c *Client) SendMulticast(ctx context.Context, tokens []string, payload Payload) ([]SendResult, error) {
	if c == nil || c.messaging == nil {
		return nil, fmt.Errorf("fcm client is not initialized")
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
	}
	webpush := &messaging.WebpushConfig{
		Notification: &messaging.WebpushNotification{Icon: payload.Icon},
	}
	if strings.TrimSpace(payload.Link) != "" {
		webpush.FCMOptions = &messaging.WebpushFCMOptions{Link: payload.Link}
	}
	msg.Webpush = webpush

	batch, err := c.messaging.SendEachForMulticast(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("send multicast: %w", err)
	}

	results := make([]SendResult, 0, len(batch.Responses))
	for i, resp := range batch.Responses {
		result := SendResult{Token: tokens[i], Success: resp.Success}
		if resp.Error != nil {
			result.Err = resp.Error
			result.Unregistered = messaging.IsUnregistered(resp.Error)
		}
		results = append(results, result)
	}
	return results, nil
}

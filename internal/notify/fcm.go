package notify

import (
	"context"
	"fmt"

	"firebase.google.com/go/messaging"
)

// FCMSink delivers merchant notifications through Firebase Cloud Messaging.
// Collapse identifiers on both platforms give the deduplicate-by-id
// behavior the dispatcher relies on.
type FCMSink struct {
	client *messaging.Client
	token  string
}

// NewFCMSink targets a single merchant device token.
func NewFCMSink(client *messaging.Client, deviceToken string) *FCMSink {
	return &FCMSink{client: client, token: deviceToken}
}

func (s *FCMSink) Post(ctx context.Context, id, title, body string, badge int) error {
	b := badge
	msg := &messaging.Message{
		Token: s.token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"notification_id": id,
		},
		Android: &messaging.AndroidConfig{
			CollapseKey: id,
			Priority:    "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "merchant_orders",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-collapse-id": id,
				"apns-priority":    "10",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: title,
						Body:  body,
					},
					Badge: &b,
					Sound: "default",
				},
			},
		},
	}

	if _, err := s.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}

// ClearBadge pushes a silent message resetting the badge count to zero.
func (s *FCMSink) ClearBadge(ctx context.Context) error {
	zero := 0
	msg := &messaging.Message{
		Token: s.token,
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority": "5",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Badge:            &zero,
					ContentAvailable: true,
				},
			},
		},
	}
	if _, err := s.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("fcm clear badge: %w", err)
	}
	return nil
}

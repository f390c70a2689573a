package notify

import (
	"context"
	"encoding/json"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/tundeajala/bookhaven-payments/pkg/enums"
	pkgerrors "github.com/tundeajala/bookhaven-payments/pkg/errors"
)

// Notifier publishes payment alerts. Delivery is best effort; callers
// never block a webhook response on it.
type Notifier interface {
	Notify(ctx context.Context, kind enums.NotificationKind, orderID string, payload map[string]any) error
}

type envelope struct {
	Kind       string         `json:"kind"`
	OrderID    string         `json:"order_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// PubSubNotifier publishes alerts to the notification topic. Consumers
// fan the events out to email, SMS and the admin dashboard.
type PubSubNotifier struct {
	publisher *pubsub.Publisher
}

func NewPubSubNotifier(publisher *pubsub.Publisher) (*PubSubNotifier, error) {
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notification publisher required")
	}
	return &PubSubNotifier{publisher: publisher}, nil
}

func (n *PubSubNotifier) Notify(ctx context.Context, kind enums.NotificationKind, orderID string, payload map[string]any) error {
	data, err := json.Marshal(envelope{
		Kind:       kind.String(),
		OrderID:    orderID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal notification")
	}

	result := n.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"kind":     kind.String(),
			"order_id": orderID,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish notification")
	}
	return nil
}

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"ordersaga/correlation"
	"ordersaga/entity"
)

// NotificationClient delivers dispatched outbox events to the notification
// service over plain JSON HTTP. It implements message.Publisher so the
// outbox dispatcher can hand it messages through tracing.PublisherDecorator
// the same way the teacher wraps its redis publisher — Publish here just
// unwraps each message back into the notification service's SendEvent body.
type NotificationClient struct {
	jsonClient
}

func NewNotificationClient(baseURL string, timeout time.Duration) NotificationClient {
	return NotificationClient{jsonClient: newJSONClient(baseURL, timeout)}
}

func (c NotificationClient) SendEvent(ctx context.Context, req entity.SendEventRequest) (entity.SendEventResponse, error) {
	var resp entity.SendEventResponse
	status, err := c.doJSON(ctx, http.MethodPost, "/events", req, &resp)
	if err != nil {
		return entity.SendEventResponse{}, entity.WrapError(entity.KindUpstreamUnavailable, "notification: send event", err)
	}
	if status != http.StatusOK && status != http.StatusAccepted {
		return entity.SendEventResponse{}, entity.NewError(entity.KindUpstreamUnavailable, fmt.Sprintf("notification: unexpected status %d", status))
	}
	return resp, nil
}

// Publish satisfies message.Publisher. topic is ignored: this publisher has
// exactly one destination, and each message already carries the event type
// it needs to route on in its metadata.
func (c NotificationClient) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		var payload map[string]interface{}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("notification: decode message payload: %w", err)
		}

		ctx := msg.Context()
		if cid := msg.Metadata.Get(correlation.HeaderName); cid != "" {
			ctx = correlation.WithID(ctx, cid)
		}

		_, err := c.SendEvent(ctx, entity.SendEventRequest{
			EventID:       msg.UUID,
			EventType:     entity.NotificationEventType(msg.Metadata.Get("event_type")),
			CorrelationID: correlation.FromContext(ctx),
			Payload:       payload,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Close satisfies message.Publisher; there is no connection to tear down
// for a plain HTTP client.
func (c NotificationClient) Close() error {
	return nil
}

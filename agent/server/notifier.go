package server

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
	qstashx "github.com/tanpawarit/Chative-Local-Concierge/pkg/qstash"
)

type publisher interface {
	Publish(ctx context.Context, body any, headers map[string]string) (qstashx.PublishResponse, error)
}

// QStashNotifier publishes shared records to a QStash topic destination.
type QStashNotifier struct {
	client publisher
	now    func() time.Time
}

var _ contractx.ShareNotifier = (*QStashNotifier)(nil)

func NewQStashNotifier(client *qstashx.Client) *QStashNotifier {
	return &QStashNotifier{client: client, now: time.Now}
}

type sharedEvent struct {
	Event          string                 `json:"event"`
	ConversationID string                 `json:"conversation_id"`
	Record         contractx.SharedRecord `json:"record"`
	SharedAt       time.Time              `json:"shared_at"`
}

func (n *QStashNotifier) NotifyShared(ctx context.Context, conversationID string, rec contractx.SharedRecord) error {
	_, err := n.client.Publish(ctx, sharedEvent{
		Event:          "business.shared",
		ConversationID: conversationID,
		Record:         rec,
		SharedAt:       n.now().UTC(),
	}, map[string]string{"X-Conversation-Id": conversationID})
	if err != nil {
		return fmt.Errorf("publish shared record %s: %w", rec.ID, err)
	}
	return nil
}

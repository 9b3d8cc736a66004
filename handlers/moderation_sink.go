package handlers

import (
	"context"

	"unibotserver/moderation"
	"unibotserver/models"
	"unibotserver/websocket"
)

// BroadcastingEventSink пишет событие модерации в основное хранилище и
// дополнительно рассылает его подключенным админ-панелям.
type BroadcastingEventSink struct {
	Sink moderation.EventSink
}

func (b *BroadcastingEventSink) AddModerationEvent(ctx context.Context, event *models.ModerationEvent) error {
	err := b.Sink.AddModerationEvent(ctx, event)

	if WebSocketHub != nil {
		if data, mErr := websocket.NewModerationMessage(event); mErr == nil {
			WebSocketHub.BroadcastRaw(data)
		}
	}

	return err
}

package services

import (
	"context"

	"taskchat/internal/events"
	"taskchat/pkg/logger"

	"github.com/google/uuid"
)

// Pusher hands alerts to an external push-notification provider for
// clients with no live socket. Fire-and-forget from the chat pipeline.
type Pusher interface {
	Push(ctx context.Context, userID uuid.UUID, alert events.AlertPayload) error
}

// LogPusher is the default no-op provider. It records the intent and
// drops the alert; the platform's real provider replaces it in wiring.
type LogPusher struct {
	log *logger.Logger
}

func NewLogPusher(log *logger.Logger) *LogPusher {
	return &LogPusher{log: log}
}

func (p *LogPusher) Push(_ context.Context, userID uuid.UUID, alert events.AlertPayload) error {
	p.log.Infof("push: alert for %s (conversation %s, seq %d)", userID, alert.ConversationID, alert.Seq)
	return nil
}

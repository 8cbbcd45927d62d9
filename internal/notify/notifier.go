package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Kind classifies a user-facing notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Notifier delivers fire-and-forget user feedback. Implementations must
// never fail the calling edit: delivery errors are logged and swallowed.
type Notifier interface {
	Notify(ctx context.Context, planningID uuid.UUID, kind Kind, message string)
}

// Event is the published notification payload.
type Event struct {
	PlanningID uuid.UUID `json:"planning_id"`
	Kind       Kind      `json:"kind"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// ChannelFor returns the pub/sub channel carrying a planning's events.
func ChannelFor(planningID uuid.UUID) string {
	return fmt.Sprintf("planning:%s:events", planningID)
}

// RedisNotifier publishes events on a per-planning redis channel, where the
// frontend session listens for toasts.
type RedisNotifier struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisNotifier creates a redis-backed notifier.
func NewRedisNotifier(client *redis.Client, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger}
}

// Notify implements Notifier.
func (n *RedisNotifier) Notify(ctx context.Context, planningID uuid.UUID, kind Kind, message string) {
	payload, err := json.Marshal(Event{
		PlanningID: planningID,
		Kind:       kind,
		Message:    message,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		n.logger.Warn("failed_to_marshal_notification", zap.Error(err))
		return
	}

	if err := n.client.Publish(ctx, ChannelFor(planningID), payload).Err(); err != nil {
		n.logger.Warn("failed_to_publish_notification",
			zap.String("planning_id", planningID.String()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

// LogNotifier writes notifications to the log only. Used by the configure
// CLI and as a fallback when redis is unavailable.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, planningID uuid.UUID, kind Kind, message string) {
	n.logger.Info("notification",
		zap.String("planning_id", planningID.String()),
		zap.String("kind", string(kind)),
		zap.String("message", message),
	)
}

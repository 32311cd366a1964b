package event

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LocalPublisher logs every event and hands it to the subscribed handlers in
// process. Used when no broker is configured.
type LocalPublisher struct {
	log      *zap.Logger
	mu       sync.RWMutex
	handlers []Handler
}

func NewLocalPublisher(log *zap.Logger) *LocalPublisher {
	return &LocalPublisher{log: log.With(zap.String("publisher", "local"))}
}

func (p *LocalPublisher) Subscribe(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

func (p *LocalPublisher) Publish(ctx context.Context, ev Event) error {
	p.log.Info("Booking event",
		zap.String("kind", string(ev.Kind)),
		zap.String("booking_id", ev.BookingID.String()),
		zap.String("user_id", ev.UserID.String()),
		zap.Strings("seats", ev.SeatLabels),
		zap.String("cost", ev.Cost.StringFixed(2)),
	)

	p.mu.RLock()
	handlers := append([]Handler(nil), p.handlers...)
	p.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, ev); err != nil {
			p.log.Warn("Event handler failed",
				zap.Error(err),
				zap.String("kind", string(ev.Kind)),
				zap.String("event_id", ev.ID.String()),
			)
		}
	}
	return nil
}

func (p *LocalPublisher) Close() error { return nil }

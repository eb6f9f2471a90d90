package dispatch

import (
	"context"
	"fmt"

	"github.com/swiftride/dispatch/pkg/broker"
	"github.com/swiftride/dispatch/pkg/logger"
	"go.uber.org/zap"
)

// StartConsumers wires the matcher to the dispatch stream. Handler errors
// reject the delivery so the broker redelivers it; malformed payloads are
// dropped after logging since redelivery cannot fix them.
func StartConsumers(ctx context.Context, bus *broker.Bus, matcher *Matcher) error {
	err := bus.Subscribe(ctx, broker.SubjectRideRequested, "dispatch-matcher-requested",
		func(ctx context.Context, msg *broker.Message) error {
			var payload broker.RideRequestedMessage
			if err := msg.Decode(&payload); err != nil {
				logger.Warn("dropping malformed ride request message",
					zap.String("message_id", msg.ID), zap.Error(err))
				return nil
			}
			return matcher.HandleRideRequested(ctx, &payload)
		})
	if err != nil {
		return fmt.Errorf("subscribe ride requested: %w", err)
	}

	err = bus.Subscribe(ctx, broker.SubjectRideCancelled, "dispatch-matcher-cancelled",
		func(ctx context.Context, msg *broker.Message) error {
			var payload broker.RideCancelledMessage
			if err := msg.Decode(&payload); err != nil {
				logger.Warn("dropping malformed ride cancel message",
					zap.String("message_id", msg.ID), zap.Error(err))
				return nil
			}
			return matcher.HandleRideCancelled(ctx, payload.RideID)
		})
	if err != nil {
		return fmt.Errorf("subscribe ride cancelled: %w", err)
	}

	return nil
}

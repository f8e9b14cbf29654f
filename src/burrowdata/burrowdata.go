// Package burrowdata provides standard ways of fetching and mutating the
// forum's core entities. Fetch helpers take a query struct and centralize
// the soft-delete and visibility rules so individual handlers cannot forget
// them.
package burrowdata

import (
	"context"

	"git.burrowchat.net/burrow/burrow/src/bus"
	"git.burrowchat.net/burrow/burrow/src/logging"
)

// publishEvent fans a mutation out to live connections. Fan-out is strictly
// best effort; a publish failure is logged and otherwise ignored, the
// database write has already happened. A nil bus is allowed so data helpers
// can be exercised without live transports.
func publishEvent(ctx context.Context, eventBus *bus.Bus, e bus.Event) {
	if eventBus == nil {
		return
	}
	if err := eventBus.Publish(e); err != nil {
		logging.ExtractLogger(ctx).Error().Err(err).Msg("failed to publish event")
	}
}

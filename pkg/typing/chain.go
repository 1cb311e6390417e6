package typing

import (
	"time"

	"github.com/dictation-core/dictation/pkg/logging"
)

// FallbackListener receives TypingFallbackEvent for each skipped/failed tier.
type FallbackListener func(TypingFallbackEvent)

// AllFailedListener receives AllTypingFallbacksFailedEvent when every tier fails.
type AllFailedListener func(AllTypingFallbacksFailedEvent)

// Chain delivers text through an ordered list of Adapters, stopping at the
// first one that reports success.
type Chain struct {
	adapters   []Adapter
	logger     logging.Logger
	onFallback FallbackListener
	onAllFail  AllFailedListener
}

func NewChain(adapters []Adapter, logger logging.Logger, onFallback FallbackListener, onAllFail AllFailedListener) *Chain {
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	return &Chain{adapters: adapters, logger: logger, onFallback: onFallback, onAllFail: onAllFail}
}

// Deliver tries each adapter in order, skipping ones that report they
// cannot deliver, and stopping at the first successful Deliver call.
func (c *Chain) Deliver(text string) bool {
	for _, a := range c.adapters {
		if !a.CanDeliver() {
			c.fallback(a.Name(), "unavailable")
			continue
		}
		if a.Deliver(text) {
			return true
		}
		c.fallback(a.Name(), "delivery failed")
	}

	c.logger.Warn("all typing adapters failed", "chars", len(text))
	if c.onAllFail != nil {
		c.onAllFail(AllTypingFallbacksFailedEvent{Reason: "all adapters exhausted", At: time.Now()})
	}
	return false
}

func (c *Chain) fallback(tier, reason string) {
	c.logger.Warn("typing adapter fell back", "tier", tier, "reason", reason)
	if c.onFallback != nil {
		c.onFallback(TypingFallbackEvent{Tier: tier, Reason: reason, At: time.Now()})
	}
}

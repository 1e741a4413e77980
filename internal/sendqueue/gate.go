package sendqueue

import (
	"github.com/casthq/outreach-core/internal/config"
)

// Decision is the gate's verdict for one locked item
type Decision int

const (
	// DecisionDryRun recycles the item without any external side effect
	DecisionDryRun Decision = iota
	// DecisionLive permits an actual send attempt
	DecisionLive
)

// Gate decides whether a locked item may be sent for real. Live sending
// is a progressive-rollout valve: it requires every flag to be on AND
// the item to match the configured canary exactly.
type Gate struct {
	sending config.SendingConfig
}

// NewGate creates a gate from the immutable sending configuration
func NewGate(sending config.SendingConfig) *Gate {
	return &Gate{sending: sending}
}

// Decide returns the verdict for one item. Any single mismatch forces
// the dry-run path regardless of the other conditions.
func (g *Gate) Decide(item *QueueItem) Decision {
	if !g.sending.Enabled {
		return DecisionDryRun
	}

	if !g.sending.LiveEnabled {
		return DecisionDryRun
	}

	if g.sending.CanaryCustomerID == "" || g.sending.CanaryCustomerID != item.CustomerID {
		return DecisionDryRun
	}

	if g.sending.CanarySenderID != "" && g.sending.CanarySenderID != item.SenderIdentityID {
		return DecisionDryRun
	}

	return DecisionLive
}

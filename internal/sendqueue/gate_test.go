package sendqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/casthq/outreach-core/internal/config"
)

func TestGate_Decide(t *testing.T) {
	canaryItem := &QueueItem{
		ID:               "item-1",
		CustomerID:       "cust-canary",
		SenderIdentityID: "sender-canary",
	}

	otherItem := &QueueItem{
		ID:               "item-2",
		CustomerID:       "cust-other",
		SenderIdentityID: "sender-other",
	}

	tests := []struct {
		name    string
		sending config.SendingConfig
		item    *QueueItem
		want    Decision
	}{
		{
			name:    "everything disabled",
			sending: config.SendingConfig{},
			item:    canaryItem,
			want:    DecisionDryRun,
		},
		{
			name: "sending enabled but live disabled",
			sending: config.SendingConfig{
				Enabled:          true,
				CanaryCustomerID: "cust-canary",
			},
			item: canaryItem,
			want: DecisionDryRun,
		},
		{
			name: "live enabled but sending disabled",
			sending: config.SendingConfig{
				LiveEnabled:      true,
				CanaryCustomerID: "cust-canary",
			},
			item: canaryItem,
			want: DecisionDryRun,
		},
		{
			name: "all flags on but no canary configured",
			sending: config.SendingConfig{
				Enabled:     true,
				LiveEnabled: true,
			},
			item: canaryItem,
			want: DecisionDryRun,
		},
		{
			name: "all flags on but item is not the canary tenant",
			sending: config.SendingConfig{
				Enabled:          true,
				LiveEnabled:      true,
				CanaryCustomerID: "cust-canary",
			},
			item: otherItem,
			want: DecisionDryRun,
		},
		{
			name: "canary tenant match allows live",
			sending: config.SendingConfig{
				Enabled:          true,
				LiveEnabled:      true,
				CanaryCustomerID: "cust-canary",
			},
			item: canaryItem,
			want: DecisionLive,
		},
		{
			name: "canary sender configured and matches",
			sending: config.SendingConfig{
				Enabled:          true,
				LiveEnabled:      true,
				CanaryCustomerID: "cust-canary",
				CanarySenderID:   "sender-canary",
			},
			item: canaryItem,
			want: DecisionLive,
		},
		{
			name: "canary sender configured but item uses another sender",
			sending: config.SendingConfig{
				Enabled:          true,
				LiveEnabled:      true,
				CanaryCustomerID: "cust-canary",
				CanarySenderID:   "sender-other",
			},
			item: canaryItem,
			want: DecisionDryRun,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(tt.sending)
			assert.Equal(t, tt.want, gate.Decide(tt.item))
		})
	}
}

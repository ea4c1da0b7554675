package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/entity"
)

func TestRuleStockPolicy_AllowNegative(t *testing.T) {
	policy, err := NewRuleStockPolicy([]string{
		`transaction_type == "Sale" && tracking_mode == "none"`,
		`location_id == "migration-staging"`,
	})
	require.NoError(t, err)

	ctx := context.Background()

	tests := []struct {
		name string
		in   PolicyInput
		want bool
	}{
		{
			name: "untracked sale allowed",
			in: PolicyInput{
				TransactionType: entity.TxSale,
				TrackingMode:    entity.TrackingNone,
			},
			want: true,
		},
		{
			name: "batch tracked sale denied",
			in: PolicyInput{
				TransactionType: entity.TxSale,
				TrackingMode:    entity.TrackingBatch,
			},
			want: false,
		},
		{
			name: "production consumption denied",
			in: PolicyInput{
				TransactionType: entity.TxProductionConsumption,
				TrackingMode:    entity.TrackingNone,
			},
			want: false,
		},
		{
			name: "staging location allowed by second rule",
			in: PolicyInput{
				TransactionType: entity.TxProductionConsumption,
				LocationID:      "migration-staging",
				TrackingMode:    entity.TrackingBatch,
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := policy.AllowNegative(ctx, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleStockPolicy_NoRules(t *testing.T) {
	policy, err := NewRuleStockPolicy(nil)
	require.NoError(t, err)

	got, err := policy.AllowNegative(context.Background(), PolicyInput{TransactionType: entity.TxSale})
	require.NoError(t, err)
	assert.False(t, got, "no rules means strict everywhere")
}

func TestRuleStockPolicy_CompileErrors(t *testing.T) {
	_, err := NewRuleStockPolicy([]string{`transaction_type ==`})
	assert.Error(t, err, "syntax error must fail at construction")

	_, err = NewRuleStockPolicy([]string{`transaction_type`})
	assert.Error(t, err, "non-bool rule must fail at construction")

	_, err = NewRuleStockPolicy([]string{`unknown_var == "x"`})
	assert.Error(t, err, "undeclared variable must fail at construction")
}

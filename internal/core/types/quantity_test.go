package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"whole units", "15", 150_000, false},
		{"fractional", "2.5", 25_000, false},
		{"four places", "0.0001", 1, false},
		{"truncates fifth place", "1.99999", 19_999, false},
		{"negative", "-3.25", -32_500, false},
		{"leading plus", "+7", 70_000, false},
		{"bare fraction", ".5", 5_000, false},
		{"zero", "0", 0, false},
		{"empty", "", 0, true},
		{"garbage", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuantity(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Int64Scaled())
		})
	}
}

func TestQuantityString(t *testing.T) {
	assert.Equal(t, "15.0000", NewQuantityFromInt(15).String())
	assert.Equal(t, "2.5000", NewQuantityFromInt64Scaled(25_000).String())
	assert.Equal(t, "-3.2500", NewQuantityFromInt64Scaled(-32_500).String())
	assert.Equal(t, "0.0000", Quantity(0).String())
}

func TestQuantityJSONRoundTrip(t *testing.T) {
	original := NewQuantityFromInt64Scaled(1_234_567) // 123.4567

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Equal(t, "123.4567", string(data))

	var decoded Quantity
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)

	// String form also accepted
	require.NoError(t, json.Unmarshal([]byte(`"123.4567"`), &decoded))
	assert.Equal(t, original, decoded)

	require.NoError(t, json.Unmarshal([]byte("null"), &decoded))
	assert.True(t, decoded.IsZero())
}

func TestQuantityArithmeticHelpers(t *testing.T) {
	ten := NewQuantityFromInt(10)
	three := NewQuantityFromInt(3)

	assert.Equal(t, NewQuantityFromInt(-10), ten.Neg())
	assert.Equal(t, ten, ten.Neg().Abs())
	assert.Equal(t, three, ten.Min(three))
	assert.Equal(t, three, three.Min(ten))
	assert.True(t, ten.IsPositive())
	assert.True(t, ten.Neg().IsNegative())
}

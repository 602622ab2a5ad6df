package shipping

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatRateProvider(t *testing.T) {
	p := NewFlatRateProvider()

	tests := []struct {
		name  string
		value int64
		want  int64
	}{
		{name: "below threshold pays the flat fee", value: 599, want: 50},
		{name: "threshold ships free", value: 600, want: 0},
		{name: "above threshold ships free", value: 2499, want: 0},
		{name: "zero value pays the flat fee", value: 0, want: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := p.GetRate(context.Background(), Destination{}, 1, decimal.NewFromInt(tt.value))
			require.NoError(t, err)
			assert.True(t, decimal.NewFromInt(tt.want).Equal(rate.Price), "got %s", rate.Price)
			assert.Equal(t, 5, rate.ETADays)
		})
	}
}

func TestFlatRateProviderCustomRule(t *testing.T) {
	p := &FlatRateProvider{
		Fee:           decimal.NewFromInt(80),
		FreeThreshold: decimal.NewFromInt(1000),
		ETADays:       3,
	}

	rate, err := p.GetRate(context.Background(), Destination{PinCode: "560001", Country: "IN"}, 2, decimal.NewFromInt(999))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(80).Equal(rate.Price))
	assert.Equal(t, 3, rate.ETADays)
}

package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		name      string
		basePrice float64
		isCollab  bool
		isPremium bool
		want      int64
	}{
		{"regular buyer", 100, false, false, 15000},
		{"premium discount", 100, false, true, 13500},
		{"collab never discounts", 100, true, true, 15000},
		{"collab regular", 100, true, false, 15000},
		{"zero base", 0, false, true, 0},
		{"floors the result", 0.333, false, false, 49},           // 49.95
		{"floors after discount", 0.333, false, true, 44},        // 44.955
		{"fractional base", 180.5, false, false, 27075},
		{"nan degrades to zero", math.NaN(), false, true, 0},
		{"inf degrades to zero", math.Inf(1), false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Price(tt.basePrice, tt.isCollab, tt.isPremium))
		})
	}
}

func TestEngineCustomRate(t *testing.T) {
	e := NewEngine(140)
	assert.Equal(t, int64(14000), e.Price(100, false, false))
	assert.Equal(t, int64(12600), e.Price(100, false, true))

	// invalid rates fall back to the default
	assert.Equal(t, int64(15000), NewEngine(0).Price(100, false, false))
	assert.Equal(t, int64(15000), NewEngine(-1).Price(100, false, false))
}

func TestTruthy(t *testing.T) {
	truthy := []interface{}{true, 1, int64(1), float64(1), "true", "1"}
	for _, v := range truthy {
		assert.True(t, Truthy(v), "%#v should be truthy", v)
	}

	falsy := []interface{}{false, 0, 2, "false", "0", "yes", "TRUE", "", nil, 0.5}
	for _, v := range falsy {
		assert.False(t, Truthy(v), "%#v should be falsy", v)
	}
}

package portfolio

import (
	"testing"
	"time"
)

func TestTotalMarketValue_FallsBackToCostBasis(t *testing.T) {
	holdings := []Holding{
		{Symbol: "AAPL", Quantity: d("10"), AveragePrice: d("100")},
		{Symbol: "GOOG", Quantity: d("2"), AveragePrice: d("140")},
	}

	cost := TotalCostBasis(holdings)
	value := TotalMarketValue(holdings)

	if !cost.Equal(d("1280")) {
		t.Errorf("totalCostBasis = %v, want 1280", cost)
	}
	if !value.Equal(cost) {
		t.Errorf("totalMarketValue = %v, want %v (no prices fetched)", value, cost)
	}
}

func TestPercentGain(t *testing.T) {
	price := d("121")

	tests := []struct {
		name     string
		holdings []Holding
		want     string
	}{
		{
			name:     "empty portfolio",
			holdings: nil,
			want:     "0",
		},
		{
			name: "zero cost basis",
			holdings: []Holding{
				{Symbol: "FREE", Quantity: d("10"), AveragePrice: d("0")},
			},
			want: "0",
		},
		{
			name: "ten percent gain",
			holdings: []Holding{
				{Symbol: "AAPL", Quantity: d("15"), AveragePrice: d("110"), CurrentPrice: &price},
			},
			want: "10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PercentGain(tt.holdings); !got.Equal(d(tt.want)) {
				t.Errorf("percentGain = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHoldingGain(t *testing.T) {
	price := d("121")
	h := &Holding{
		Symbol:       "AAPL",
		Quantity:     d("15"),
		AveragePrice: d("110"),
		CurrentPrice: &price,
	}

	if got := HoldingGainPercent(h); !got.Equal(d("10")) {
		t.Errorf("holdingGainPercent = %v, want 10", got)
	}
	if got := HoldingGainValue(h); !got.Equal(d("165.00")) {
		t.Errorf("holdingGainValue = %v, want 165.00", got)
	}
}

func TestHoldingGain_Unpriced(t *testing.T) {
	h := &Holding{Symbol: "AAPL", Quantity: d("15"), AveragePrice: d("110")}

	if got := HoldingGainPercent(h); !got.IsZero() {
		t.Errorf("holdingGainPercent = %v, want 0", got)
	}
	if got := HoldingGainValue(h); !got.IsZero() {
		t.Errorf("holdingGainValue = %v, want 0", got)
	}
}

func TestSummarize(t *testing.T) {
	price := d("121")
	now := time.Now()
	holdings := []Holding{
		{Symbol: "AAPL", Quantity: d("15"), AveragePrice: d("110"), CurrentPrice: &price, LastUpdate: &now},
		{Symbol: "GOOG", Quantity: d("2"), AveragePrice: d("140")},
	}

	s := Summarize(holdings)

	if s.Holdings != 2 {
		t.Errorf("holdings = %d, want 2", s.Holdings)
	}
	if !s.TotalQuantity.Equal(d("17")) {
		t.Errorf("totalQuantity = %v, want 17", s.TotalQuantity)
	}
	if !s.TotalCostBasis.Equal(d("1930")) {
		t.Errorf("totalCostBasis = %v, want 1930", s.TotalCostBasis)
	}
	// 15*121 + 2*140 = 2095
	if !s.TotalMarketValue.Equal(d("2095")) {
		t.Errorf("totalMarketValue = %v, want 2095", s.TotalMarketValue)
	}
	if s.PercentGain.IsZero() || s.PercentGain.IsNegative() {
		t.Errorf("percentGain = %v, want positive", s.PercentGain)
	}
}

package recurring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cleared-dev/ledger/internal/model"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func intp(n int) *int { return &n }

func TestCalculateNextRun(t *testing.T) {
	tests := []struct {
		name     string
		from     time.Time
		freq     model.Frequency
		interval *int
		want     time.Time
	}{
		{"daily", date(2024, 1, 15), model.FrequencyDaily, nil, date(2024, 1, 16)},
		{"daily over year end", date(2023, 12, 31), model.FrequencyDaily, nil, date(2024, 1, 1)},
		{"weekly", date(2024, 1, 15), model.FrequencyWeekly, nil, date(2024, 1, 22)},
		{"monthly", date(2024, 1, 15), model.FrequencyMonthly, nil, date(2024, 2, 15)},
		{"monthly clamps leap", date(2024, 1, 31), model.FrequencyMonthly, nil, date(2024, 2, 29)},
		{"monthly clamps", date(2023, 1, 31), model.FrequencyMonthly, nil, date(2023, 2, 28)},
		{"monthly to 30-day month", date(2024, 3, 31), model.FrequencyMonthly, nil, date(2024, 4, 30)},
		{"monthly over year end", date(2024, 12, 15), model.FrequencyMonthly, nil, date(2025, 1, 15)},
		{"quarterly", date(2024, 1, 15), model.FrequencyQuarterly, nil, date(2024, 4, 15)},
		{"quarterly clamps", date(2024, 11, 30), model.FrequencyQuarterly, nil, date(2025, 2, 28)},
		{"yearly", date(2024, 1, 15), model.FrequencyYearly, nil, date(2025, 1, 15)},
		{"yearly from leap day", date(2024, 2, 29), model.FrequencyYearly, nil, date(2025, 2, 28)},
		{"custom", date(2024, 1, 15), model.FrequencyCustom, intp(10), date(2024, 1, 25)},
		{"custom without interval", date(2024, 1, 15), model.FrequencyCustom, nil, date(2024, 1, 16)},
		{"custom zero interval", date(2024, 1, 15), model.FrequencyCustom, intp(0), date(2024, 1, 16)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateNextRun(tt.from, tt.freq, tt.interval))
		})
	}
}

func TestCalculateNextRun_StrictlyIncreasing(t *testing.T) {
	freqs := []model.Frequency{
		model.FrequencyDaily, model.FrequencyWeekly, model.FrequencyMonthly,
		model.FrequencyQuarterly, model.FrequencyYearly, model.FrequencyCustom,
	}
	for _, f := range freqs {
		d := date(2023, 1, 31)
		for i := 0; i < 60; i++ {
			next := CalculateNextRun(d, f, nil)
			assert.True(t, next.After(d), "%s: %s -> %s", f, d, next)
			d = next
		}
	}
}

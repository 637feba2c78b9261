package dashboard

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/realtime"
	"github.com/yeremiapane/canteen-app/repository"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Order targets per period.
var Targets = map[Period]int{
	PeriodDay:   10,
	PeriodWeek:  70,
	PeriodMonth: 300,
}

var periods = []Period{PeriodDay, PeriodWeek, PeriodMonth}

type GaugeReading struct {
	Period     Period  `json:"period"`
	Orders     int     `json:"orders"`
	Target     int     `json:"target"`
	Percentage float64 `json:"percentage"`
}

// ParsePeriod accepts day, week or month; anything else is day.
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodWeek, PeriodMonth:
		return Period(s)
	}
	return PeriodDay
}

// Percentage is orders against target, capped at 100.
func Percentage(orders, target int) float64 {
	if target <= 0 {
		return 0
	}
	return math.Min(100, float64(orders)/float64(target)*100)
}

// SalesGauge tracks order counts against the period targets.
type SalesGauge struct {
	source TransactionSource
	opts   Options

	mu   sync.RWMutex
	rows txSet
}

func NewSalesGauge(source TransactionSource, opts Options) *SalesGauge {
	return &SalesGauge{source: source, opts: opts, rows: newTxSet()}
}

func (w *SalesGauge) Name() string { return "sales-gauge" }

func (w *SalesGauge) periodStart(p Period, now time.Time) time.Time {
	switch p {
	case PeriodWeek:
		return startOfWeek(now)
	case PeriodMonth:
		return startOfMonth(now)
	}
	return startOfDay(now)
}

// since covers the longest of the three periods.
func (w *SalesGauge) since() time.Time {
	now := w.opts.now()
	week, month := startOfWeek(now), startOfMonth(now)
	if week.Before(month) {
		return week
	}
	return month
}

func (w *SalesGauge) Load(ctx context.Context) error {
	rows, err := w.source.List(ctx, repository.TransactionFilter{
		PaymentStatus: models.PaymentSuccess,
		Since:         w.since(),
	})
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.rows.replace(rows)
	w.mu.Unlock()
	return nil
}

func (w *SalesGauge) Apply(_ context.Context, ev realtime.ChangeEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	since := w.since()
	w.rows.prune(since)
	_, err := w.rows.merge(ev, since)
	return err
}

// Reading returns the gauge for one period.
func (w *SalesGauge) Reading(p Period) GaugeReading {
	start := w.periodStart(p, w.opts.now())
	w.mu.RLock()
	orders := 0
	for _, r := range w.rows.rows {
		if !r.CreatedAt.Before(start) {
			orders++
		}
	}
	w.mu.RUnlock()
	return GaugeReading{Period: p, Orders: orders, Target: Targets[p], Percentage: Percentage(orders, Targets[p])}
}

func (w *SalesGauge) Snapshot() []GaugeReading {
	out := make([]GaugeReading, 0, len(periods))
	for _, p := range periods {
		out = append(out, w.Reading(p))
	}
	return out
}

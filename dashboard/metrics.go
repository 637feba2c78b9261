package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/realtime"
	"github.com/yeremiapane/canteen-app/repository"
	"github.com/yeremiapane/canteen-app/utils"
)

// activeStatuses are the order statuses counted as active. Preparing is kept
// for rows written before Cooking existed.
var activeStatuses = map[string]bool{
	models.OrderPending:   true,
	models.OrderAccepted:  true,
	models.OrderPreparing: true,
}

type Metrics struct {
	TodayOrders      int       `json:"today_orders"`
	YesterdayOrders  int       `json:"yesterday_orders"`
	OrdersTrend      float64   `json:"orders_trend"`
	TodayRevenue     float64   `json:"today_revenue"`
	YesterdayRevenue float64   `json:"yesterday_revenue"`
	RevenueTrend     float64   `json:"revenue_trend"`
	RevenueLabel     string    `json:"revenue_label"`
	ActiveOrders     int       `json:"active_orders"`
	AsOf             time.Time `json:"as_of"`
}

// MetricsCards compares today with yesterday.
type MetricsCards struct {
	source TransactionSource
	opts   Options

	mu   sync.RWMutex
	rows txSet
}

func NewMetricsCards(source TransactionSource, opts Options) *MetricsCards {
	return &MetricsCards{source: source, opts: opts, rows: newTxSet()}
}

func (w *MetricsCards) Name() string { return "metrics" }

func (w *MetricsCards) since() time.Time {
	return startOfDay(w.opts.now()).AddDate(0, 0, -1)
}

func (w *MetricsCards) Load(ctx context.Context) error {
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

func (w *MetricsCards) Apply(_ context.Context, ev realtime.ChangeEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	since := w.since()
	w.rows.prune(since)
	_, err := w.rows.merge(ev, since)
	return err
}

func (w *MetricsCards) Snapshot() Metrics {
	now := w.opts.now()
	today := startOfDay(now)
	yesterday := today.AddDate(0, 0, -1)

	w.mu.RLock()
	defer w.mu.RUnlock()

	m := Metrics{AsOf: now}
	for _, r := range w.rows.rows {
		created := r.CreatedAt.In(w.opts.location())
		switch {
		case !created.Before(today):
			m.TodayOrders++
			m.TodayRevenue += r.TotalAmount
			if activeStatuses[r.OrderStatus] {
				m.ActiveOrders++
			}
		case !created.Before(yesterday):
			m.YesterdayOrders++
			m.YesterdayRevenue += r.TotalAmount
		}
	}
	m.OrdersTrend = Trend(float64(m.TodayOrders), float64(m.YesterdayOrders))
	m.RevenueTrend = Trend(m.TodayRevenue, m.YesterdayRevenue)
	m.RevenueLabel = utils.FormatINR(m.TodayRevenue)
	return m
}

package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/realtime"
	"github.com/yeremiapane/canteen-app/repository"
)

const performanceDays = 7

type DailyPerformance struct {
	Date    string  `json:"date"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// Performance reports orders and revenue per day for the last seven days,
// oldest first.
type Performance struct {
	source TransactionSource
	opts   Options

	mu   sync.RWMutex
	rows txSet
}

func NewPerformance(source TransactionSource, opts Options) *Performance {
	return &Performance{source: source, opts: opts, rows: newTxSet()}
}

func (w *Performance) Name() string { return "performance" }

func (w *Performance) since() time.Time {
	return startOfDay(w.opts.now()).AddDate(0, 0, -(performanceDays - 1))
}

func (w *Performance) Load(ctx context.Context) error {
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

func (w *Performance) Apply(_ context.Context, ev realtime.ChangeEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	since := w.since()
	w.rows.prune(since)
	_, err := w.rows.merge(ev, since)
	return err
}

func (w *Performance) Snapshot() []DailyPerformance {
	first := w.since()
	out := make([]DailyPerformance, performanceDays)
	for i := range out {
		out[i].Date = first.AddDate(0, 0, i).Format("2006-01-02")
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, r := range w.rows.rows {
		day := startOfDay(r.CreatedAt.In(w.opts.location()))
		i := int(day.Sub(first).Hours()+0.5) / 24
		if i < 0 || i >= performanceDays {
			continue
		}
		out[i].Orders++
		out[i].Revenue += r.TotalAmount
	}
	return out
}

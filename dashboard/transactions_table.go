package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/realtime"
	"github.com/yeremiapane/canteen-app/repository"
)

const TransactionTableLimit = 20

// TransactionTable keeps the newest successful transactions for the staff
// order table.
type TransactionTable struct {
	source TransactionSource
	limit  int

	mu   sync.RWMutex
	rows txSet
}

func NewTransactionTable(source TransactionSource, limit int) *TransactionTable {
	if limit <= 0 {
		limit = TransactionTableLimit
	}
	return &TransactionTable{source: source, limit: limit, rows: newTxSet()}
}

func (w *TransactionTable) Name() string { return "transactions" }

func (w *TransactionTable) Load(ctx context.Context) error {
	rows, err := w.source.List(ctx, repository.TransactionFilter{
		PaymentStatus: models.PaymentSuccess,
		Limit:         w.limit,
		WithItems:     true,
	})
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.rows.replace(rows)
	w.mu.Unlock()
	return nil
}

// Apply merges ev and trims the set to limit. When a row leaves the set and
// fewer than limit remain, the table is refetched so it stays full.
func (w *TransactionTable) Apply(ctx context.Context, ev realtime.ChangeEvent) error {
	w.mu.Lock()
	_, had := w.rows.rows[uint(ev.RecordID)]
	kept, err := w.rows.merge(ev, time.Time{})
	if err != nil {
		w.mu.Unlock()
		return err
	}
	rows := w.rows.newest()
	if len(rows) > w.limit {
		for _, r := range rows[w.limit:] {
			delete(w.rows.rows, r.ID)
		}
	}
	shrunk := had && kept == nil && len(w.rows.rows) < w.limit
	w.mu.Unlock()

	if shrunk {
		return w.Load(ctx)
	}
	return nil
}

// Snapshot returns the rows newest first, optionally narrowed to statuses.
func (w *TransactionTable) Snapshot(statuses ...string) []models.Transaction {
	w.mu.RLock()
	rows := w.rows.newest()
	w.mu.RUnlock()
	if len(statuses) == 0 {
		return rows
	}
	want := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	out := rows[:0]
	for _, r := range rows {
		if want[r.OrderStatus] {
			out = append(out, r)
		}
	}
	return out
}

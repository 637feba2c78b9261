package dashboard

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/realtime"
	"github.com/yeremiapane/canteen-app/repository"
)

// MostOrderedLimit is how many items the widget reports.
const MostOrderedLimit = 5

type ItemStat struct {
	Name          string  `json:"name"`
	Orders        int     `json:"orders"`
	Revenue       float64 `json:"revenue"`
	Customers     int     `json:"customers"`
	TotalQuantity int     `json:"total_quantity"`
}

type monthRow struct {
	createdAt time.Time
	email     string
	items     []repository.Item
}

// MostOrdered ranks the items sold this calendar month by quantity.
type MostOrdered struct {
	source TransactionSource
	items  ItemResolver
	opts   Options

	mu   sync.RWMutex
	rows map[uint]monthRow
}

func NewMostOrdered(source TransactionSource, items ItemResolver, opts Options) *MostOrdered {
	return &MostOrdered{source: source, items: items, opts: opts, rows: make(map[uint]monthRow)}
}

func (w *MostOrdered) Name() string { return "most-ordered" }

func (w *MostOrdered) Load(ctx context.Context) error {
	txs, err := w.source.List(ctx, repository.TransactionFilter{
		PaymentStatus: models.PaymentSuccess,
		Since:         startOfMonth(w.opts.now()),
		WithItems:     true,
	})
	if err != nil {
		return err
	}
	rows := make(map[uint]monthRow, len(txs))
	for i := range txs {
		row, ok, err := w.resolve(ctx, &txs[i])
		if err != nil {
			return err
		}
		if ok {
			rows[txs[i].ID] = row
		}
	}
	w.mu.Lock()
	w.rows = rows
	w.mu.Unlock()
	return nil
}

// resolve reads the items of t. A transaction with no items at all is
// skipped rather than counted as an empty order.
func (w *MostOrdered) resolve(ctx context.Context, t *models.Transaction) (monthRow, bool, error) {
	items, _, err := w.items.Resolve(ctx, t)
	if errors.Is(err, repository.ErrNoItems) {
		return monthRow{}, false, nil
	}
	if err != nil {
		return monthRow{}, false, err
	}
	return monthRow{createdAt: t.CreatedAt, email: strings.ToLower(t.CustomerEmail), items: items}, true, nil
}

func (w *MostOrdered) Apply(ctx context.Context, ev realtime.ChangeEvent) error {
	t, err := transactionFromEvent(ev)
	if err != nil {
		return err
	}
	since := startOfMonth(w.opts.now())
	id := uint(ev.RecordID)

	if t == nil || !t.IsPaid() || t.CreatedAt.Before(since) {
		w.mu.Lock()
		delete(w.rows, id)
		w.mu.Unlock()
		return nil
	}

	// Items are resolved outside the lock.
	row, ok, err := w.resolve(ctx, t)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for k, r := range w.rows {
		if r.createdAt.Before(since) {
			delete(w.rows, k)
		}
	}
	if ok {
		w.rows[id] = row
	} else {
		delete(w.rows, id)
	}
	return nil
}

// Snapshot aggregates the rows of the current month only; rows left over
// from the previous month are ignored until the next Apply prunes them.
func (w *MostOrdered) Snapshot() []ItemStat {
	since := startOfMonth(w.opts.now())
	w.mu.RLock()
	defer w.mu.RUnlock()
	return aggregateItems(w.rows, since, MostOrderedLimit)
}

func aggregateItems(rows map[uint]monthRow, since time.Time, limit int) []ItemStat {
	type acc struct {
		stat      ItemStat
		customers map[string]struct{}
	}
	byName := make(map[string]*acc)
	for _, row := range rows {
		if row.createdAt.Before(since) {
			continue
		}
		seen := make(map[string]bool)
		for _, it := range row.items {
			a, ok := byName[it.Name]
			if !ok {
				a = &acc{stat: ItemStat{Name: it.Name}, customers: make(map[string]struct{})}
				byName[it.Name] = a
			}
			if !seen[it.Name] {
				seen[it.Name] = true
				a.stat.Orders++
			}
			a.stat.TotalQuantity += it.Quantity
			a.stat.Revenue += it.Price * float64(it.Quantity)
			if row.email != "" {
				a.customers[row.email] = struct{}{}
			}
		}
	}

	out := make([]ItemStat, 0, len(byName))
	for _, a := range byName {
		a.stat.Customers = len(a.customers)
		out = append(out, a.stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalQuantity != out[j].TotalQuantity {
			return out[i].TotalQuantity > out[j].TotalQuantity
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Package dashboard implements the staff dashboard widgets. Each widget
// loads a snapshot of successful transactions, subscribes to the
// transactions change feed and merges every changed row into its own local
// state. Widgets share nothing with each other.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/realtime"
	"github.com/yeremiapane/canteen-app/repository"
	"github.com/yeremiapane/canteen-app/utils"
)

// Widget is one dashboard aggregation.
type Widget interface {
	Name() string
	// Load replaces the widget state with a fresh snapshot.
	Load(ctx context.Context) error
	// Apply merges one change into the widget state.
	Apply(ctx context.Context, ev realtime.ChangeEvent) error
}

// TransactionSource is the query side widgets load from.
type TransactionSource interface {
	List(ctx context.Context, f repository.TransactionFilter) ([]models.Transaction, error)
}

// ItemResolver resolves the items of one transaction.
type ItemResolver interface {
	Resolve(ctx context.Context, t *models.Transaction) ([]repository.Item, repository.Source, error)
}

// Options carries the clock and zone used for midnight-aligned windows.
type Options struct {
	Now      func() time.Time
	Location *time.Location
}

func (o Options) now() time.Time {
	loc := o.Location
	if loc == nil {
		loc = time.Local
	}
	if o.Now == nil {
		return time.Now().In(loc)
	}
	return o.Now().In(loc)
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

// Run drives w until ctx is done: subscribe, load, then apply every event.
// When the hub dropped events for this widget, the buffered backlog is
// discarded and the widget loads a fresh snapshot instead.
// Errors are logged and the widget keeps running with whatever state it has.
func Run(ctx context.Context, hub *realtime.Hub, w Widget) {
	events, gaps, cancel := hub.SubscribeWithGaps(realtime.Filter{Table: realtime.TableTransactions})
	defer cancel()

	if err := w.Load(ctx); err != nil {
		utils.ErrorLogger.Errorf("dashboard %s: load: %v", w.Name(), err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-gaps:
			if !drain(events) {
				return
			}
			utils.InfoLogger.Warnf("dashboard %s: missed changes, reloading", w.Name())
			if err := w.Load(ctx); err != nil {
				utils.ErrorLogger.Errorf("dashboard %s: reload: %v", w.Name(), err)
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := w.Apply(ctx, ev); err != nil {
				utils.ErrorLogger.Errorf("dashboard %s: apply %s #%d: %v", w.Name(), ev.Type, ev.RecordID, err)
			}
		}
	}
}

// drain empties the buffered events. It reports false once the channel is closed.
func drain(events <-chan realtime.ChangeEvent) bool {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}

// Trend is the percentage change from previous to current; 0 when previous is 0.
func Trend(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek is Monday midnight.
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// transactionFromEvent extracts the row carried by ev. It returns nil for
// deletes.
func transactionFromEvent(ev realtime.ChangeEvent) (*models.Transaction, error) {
	if ev.Type == realtime.EventDelete {
		return nil, nil
	}
	switch r := ev.Record.(type) {
	case nil:
		return nil, nil
	case *models.Transaction:
		cp := *r
		return &cp, nil
	case models.Transaction:
		return &r, nil
	}
	var t models.Transaction
	if err := ev.Decode(&t); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return &t, nil
}

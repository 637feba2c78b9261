package dashboard

import (
	"context"
	"sync"

	"github.com/yeremiapane/canteen-app/realtime"
	"github.com/yeremiapane/canteen-app/utils"
)

// Board owns one instance of every widget. Widgets run independently and
// may briefly disagree with each other.
type Board struct {
	Metrics      *MetricsCards
	MostOrdered  *MostOrdered
	Gauge        *SalesGauge
	Heatmap      *VisitorHeatmap
	Transactions *TransactionTable
	Performance  *Performance

	wg sync.WaitGroup
}

func NewBoard(source TransactionSource, items ItemResolver, mode MatchMode, opts Options) *Board {
	return &Board{
		Metrics:      NewMetricsCards(source, opts),
		MostOrdered:  NewMostOrdered(source, items, opts),
		Gauge:        NewSalesGauge(source, opts),
		Heatmap:      NewVisitorHeatmap(source, mode, opts),
		Transactions: NewTransactionTable(source, TransactionTableLimit),
		Performance:  NewPerformance(source, opts),
	}
}

func (b *Board) widgets() []Widget {
	return []Widget{b.Metrics, b.MostOrdered, b.Gauge, b.Heatmap, b.Transactions, b.Performance}
}

// Start runs every widget in its own goroutine until ctx is done.
func (b *Board) Start(ctx context.Context, hub *realtime.Hub) {
	for _, w := range b.widgets() {
		b.wg.Add(1)
		go func(w Widget) {
			defer b.wg.Done()
			Run(ctx, hub, w)
		}(w)
	}
	utils.InfoLogger.Infof("dashboard: %d widgets running", len(b.widgets()))
}

// Wait blocks until every widget stopped.
func (b *Board) Wait() {
	b.wg.Wait()
}

// Reload loads every widget again; failures are logged.
func (b *Board) Reload(ctx context.Context) {
	for _, w := range b.widgets() {
		if err := w.Load(ctx); err != nil {
			utils.ErrorLogger.Errorf("dashboard %s: reload: %v", w.Name(), err)
		}
	}
}

package dashboard

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/realtime"
	"github.com/yeremiapane/canteen-app/repository"
)

// MatchMode decides how a transaction time lands in a slot.
type MatchMode string

const (
	// MatchExact counts a transaction only when its local HH:MM equals a slot
	// label, so 12:31 lands nowhere. This mirrors the dashboard's long-standing
	// behaviour and undercounts; MatchRange fixes it.
	MatchExact MatchMode = "exact"
	// MatchRange puts a transaction in the half hour slot containing it.
	MatchRange MatchMode = "range"
)

const (
	heatmapFirstHour = 6
	heatmapSlots     = 26 // 06:00 .. 18:30
	peakHourCount    = 3
)

// Days are Monday first.
var Days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Slots are the half hour labels from 06:00 to 18:30.
var Slots = func() []string {
	out := make([]string, heatmapSlots)
	for i := range out {
		out[i] = fmt.Sprintf("%02d:%02d", heatmapFirstHour+i/2, (i%2)*30)
	}
	return out
}()

var slotIndex = func() map[string]int {
	m := make(map[string]int, len(Slots))
	for i, s := range Slots {
		m[s] = i
	}
	return m
}()

type SlotCount struct {
	Slot  string `json:"slot"`
	Count int    `json:"count"`
}

type Heatmap struct {
	Days       []string    `json:"days"`
	Slots      []string    `json:"slots"`
	Counts     [][]int     `json:"counts"`
	PeakHours  []SlotCount `json:"peak_hours"`
	BusiestDay string      `json:"busiest_day"`
	Mode       MatchMode   `json:"mode"`
}

type cell struct {
	day, slot int
}

// VisitorHeatmap buckets successful transactions into day x half hour cells.
type VisitorHeatmap struct {
	source TransactionSource
	opts   Options
	mode   MatchMode

	mu    sync.RWMutex
	cells map[uint]cell
}

func NewVisitorHeatmap(source TransactionSource, mode MatchMode, opts Options) *VisitorHeatmap {
	if mode != MatchRange {
		mode = MatchExact
	}
	return &VisitorHeatmap{source: source, opts: opts, mode: mode, cells: make(map[uint]cell)}
}

func (w *VisitorHeatmap) Name() string { return "heatmap" }

// locate returns the cell of t, or false when it falls in no slot.
func (w *VisitorHeatmap) locate(t *models.Transaction) (cell, bool) {
	local := t.CreatedAt.In(w.opts.location())
	day := (int(local.Weekday()) + 6) % 7

	if w.mode == MatchExact {
		slot, ok := slotIndex[local.Format("15:04")]
		return cell{day: day, slot: slot}, ok
	}
	slot := (local.Hour()-heatmapFirstHour)*2 + local.Minute()/30
	if slot < 0 || slot >= heatmapSlots {
		return cell{}, false
	}
	return cell{day: day, slot: slot}, true
}

func (w *VisitorHeatmap) Load(ctx context.Context) error {
	rows, err := w.source.List(ctx, repository.TransactionFilter{PaymentStatus: models.PaymentSuccess})
	if err != nil {
		return err
	}
	cells := make(map[uint]cell, len(rows))
	for i := range rows {
		if c, ok := w.locate(&rows[i]); ok {
			cells[rows[i].ID] = c
		}
	}
	w.mu.Lock()
	w.cells = cells
	w.mu.Unlock()
	return nil
}

func (w *VisitorHeatmap) Apply(_ context.Context, ev realtime.ChangeEvent) error {
	t, err := transactionFromEvent(ev)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	id := uint(ev.RecordID)
	if t == nil || !t.IsPaid() {
		delete(w.cells, id)
		return nil
	}
	if c, ok := w.locate(t); ok {
		w.cells[id] = c
	} else {
		delete(w.cells, id)
	}
	return nil
}

func (w *VisitorHeatmap) Snapshot() Heatmap {
	counts := make([][]int, len(Days))
	for d := range counts {
		counts[d] = make([]int, heatmapSlots)
	}
	w.mu.RLock()
	for _, c := range w.cells {
		counts[c.day][c.slot]++
	}
	w.mu.RUnlock()

	return Heatmap{
		Days:       Days,
		Slots:      Slots,
		Counts:     counts,
		PeakHours:  peakHours(counts),
		BusiestDay: busiestDay(counts),
		Mode:       w.mode,
	}
}

// peakHours returns the busiest slots summed over all days, at most three,
// skipping empty slots. Ties go to the earlier slot.
func peakHours(counts [][]int) []SlotCount {
	totals := make([]SlotCount, heatmapSlots)
	for s := range totals {
		totals[s].Slot = Slots[s]
		for d := range counts {
			totals[s].Count += counts[d][s]
		}
	}
	sort.SliceStable(totals, func(i, j int) bool { return totals[i].Count > totals[j].Count })

	out := make([]SlotCount, 0, peakHourCount)
	for _, t := range totals {
		if t.Count == 0 || len(out) == peakHourCount {
			break
		}
		out = append(out, t)
	}
	return out
}

// busiestDay is the day with the highest total; empty when there is no data.
func busiestDay(counts [][]int) string {
	best, bestTotal := -1, 0
	for d, row := range counts {
		total := 0
		for _, n := range row {
			total += n
		}
		if total > bestTotal {
			best, bestTotal = d, total
		}
	}
	if best < 0 {
		return ""
	}
	return Days[best]
}

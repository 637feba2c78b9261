package dashboard

import (
	"sort"
	"time"

	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/realtime"
)

// txSet is the local copy of the successful transactions a widget watches.
// Callers hold the widget lock.
type txSet struct {
	rows map[uint]models.Transaction
}

func newTxSet() txSet {
	return txSet{rows: make(map[uint]models.Transaction)}
}

func (s *txSet) replace(rows []models.Transaction) {
	s.rows = make(map[uint]models.Transaction, len(rows))
	for _, r := range rows {
		s.rows[r.ID] = r
	}
}

// merge upserts the event row when it is paid and created at or after since,
// and drops it otherwise. It returns the kept row, or nil when dropped.
func (s *txSet) merge(ev realtime.ChangeEvent, since time.Time) (*models.Transaction, error) {
	t, err := transactionFromEvent(ev)
	if err != nil {
		return nil, err
	}
	id := uint(ev.RecordID)
	if t == nil || !t.IsPaid() || t.CreatedAt.Before(since) {
		delete(s.rows, id)
		return nil, nil
	}
	s.rows[id] = *t
	return t, nil
}

// prune drops rows created before since.
func (s *txSet) prune(since time.Time) {
	for id, r := range s.rows {
		if r.CreatedAt.Before(since) {
			delete(s.rows, id)
		}
	}
}

// newest returns the rows newest first.
func (s *txSet) newest() []models.Transaction {
	out := make([]models.Transaction, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

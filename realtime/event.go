// Package realtime fans database change events out to in-process
// subscribers and websocket clients.
package realtime

import (
	"encoding/json"
	"strings"
	"time"
)

// Event types, named after the write that produced them.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// Table names carried by events.
const (
	TableTransactions = "transactions"
	TableOrderItems   = "order_items"
	TableUserCart     = "user_cart"
	TableInventory    = "inventory"
)

// ChangeEvent describes one row-level change. Record holds the row as it is
// after the change; it is nil for deletes.
type ChangeEvent struct {
	Table    string    `json:"table"`
	Type     string    `json:"type"`
	RecordID int64     `json:"record_id"`
	Record   any       `json:"record,omitempty"`
	At       time.Time `json:"at"`
}

// Decode unmarshals Record into dst, whatever concrete type it was published with.
func (e ChangeEvent) Decode(dst any) error {
	raw, err := json.Marshal(e.Record)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// Filter selects events by table and type. Empty fields match everything.
type Filter struct {
	Table string
	Types []string
}

// Matches reports whether e passes the filter.
func (f Filter) Matches(e ChangeEvent) bool {
	if f.Table != "" && f.Table != e.Table {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == "*" || strings.EqualFold(t, e.Type) {
			return true
		}
	}
	return false
}

// ParseFilter builds a filter from the table and event query values.
// event may be "*" or a comma separated list.
func ParseFilter(table, event string) Filter {
	f := Filter{Table: strings.TrimSpace(table)}
	if event == "" || event == "*" {
		return f
	}
	for _, t := range strings.Split(event, ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			f.Types = append(f.Types, t)
		}
	}
	return f
}

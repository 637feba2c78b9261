package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yeremiapane/canteen-app/models"
)

// ErrNoItems means neither the normalized rows nor the embedded JSON of a
// transaction hold any item. It is distinct from an order of zero items.
var ErrNoItems = errors.New("no items found for transaction")

// Item is the single representation readers work with.
type Item struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Category string  `json:"category,omitempty"`
}

// Source tells where Resolve found the items.
type Source string

const (
	SourceNormalized Source = "order_items"
	SourceEmbedded   Source = "embedded"
)

// ItemLister is the part of OrderItemRepository the reader needs.
type ItemLister interface {
	ListByTransaction(ctx context.Context, transactionID uint) ([]models.OrderItem, error)
}

// ItemReader resolves the items of a transaction across both storage paths:
// normalized order_items rows first, then the embedded JSON column.
type ItemReader struct {
	items ItemLister
}

func NewItemReader(items ItemLister) *ItemReader {
	return &ItemReader{items: items}
}

// Resolve returns the items and where they came from, or ErrNoItems.
func (r *ItemReader) Resolve(ctx context.Context, t *models.Transaction) ([]Item, Source, error) {
	rows := t.OrderItems
	if len(rows) == 0 && r.items != nil {
		var err error
		rows, err = r.items.ListByTransaction(ctx, t.ID)
		if err != nil {
			return nil, "", err
		}
	}
	if len(rows) > 0 {
		out := make([]Item, 0, len(rows))
		for _, row := range rows {
			out = append(out, Item{Name: row.Name, Quantity: row.Quantity, Price: row.Price, Category: row.Category})
		}
		return out, SourceNormalized, nil
	}

	embedded, err := DecodeEmbedded(t.Items)
	if err != nil {
		return nil, "", fmt.Errorf("transaction %d: %w", t.ID, err)
	}
	if len(embedded) > 0 {
		out := make([]Item, 0, len(embedded))
		for _, e := range embedded {
			out = append(out, Item{Name: e.Name, Quantity: e.Quantity, Price: e.Price, Category: e.Category})
		}
		return out, SourceEmbedded, nil
	}
	return nil, "", ErrNoItems
}

// DecodeEmbedded parses the legacy items column. Empty or JSON null is no items.
func DecodeEmbedded(raw []byte) ([]models.EmbeddedItem, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var items []models.EmbeddedItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode embedded items: %w", err)
	}
	return items, nil
}

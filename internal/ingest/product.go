// CLAUDE:SUMMARY Product loader: required-field checks, price coercion, onSale rename.
package ingest

import (
	"fmt"

	"github.com/hazyhaar/storefeed/internal/fetch"
	"github.com/hazyhaar/storefeed/internal/store"
)

// ProductLoader ingests the products collection.
type ProductLoader struct {
	Endpoint string
}

// NewProductLoader creates a loader for the products endpoint.
func NewProductLoader(endpoint string) *ProductLoader {
	return &ProductLoader{Endpoint: endpoint}
}

func (l *ProductLoader) Name() string { return "products" }

func (l *ProductLoader) URL() string { return l.Endpoint }

func (l *ProductLoader) Relation() store.Relation { return store.ProductsRelation }

// Transform maps raw product records to products rows. The upstream field
// onSale is renamed to on_sale; popular and on_sale default to false; color
// and discount stay NULL when absent.
func (l *ProductLoader) Transform(raw []fetch.RawRecord) ([][]any, error) {
	rows := make([][]any, 0, len(raw))
	for i, item := range raw {
		row, err := productRow(item)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func productRow(item fetch.RawRecord) ([]any, error) {
	for _, field := range []string{"id", "title", "image", "price", "description", "brand", "model", "category"} {
		if _, ok := item[field]; !ok {
			return nil, fmt.Errorf("missing required field %q", field)
		}
	}

	id, err := asInt64(item["id"])
	if err != nil {
		return nil, fmt.Errorf("field id: %w", err)
	}
	price, err := asFloat(item["price"])
	if err != nil {
		return nil, fmt.Errorf("field price: %w", err)
	}

	var color any
	if v, ok := item["color"]; ok && v != nil {
		color = asString(v)
	}
	var discount any
	if v, ok := item["discount"]; ok && v != nil {
		d, err := asFloat(v)
		if err != nil {
			return nil, fmt.Errorf("field discount: %w", err)
		}
		discount = d
	}

	return []any{
		id,
		asString(item["title"]),
		asString(item["image"]),
		price,
		asString(item["description"]),
		asString(item["brand"]),
		asString(item["model"]),
		color,
		asString(item["category"]),
		discount,
		asBool(item["popular"]),
		asBool(item["onSale"]),
	}, nil
}

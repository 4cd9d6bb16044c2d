// CLAUDE:SUMMARY Allowlisted table browsing and row-count statistics for the HTTP API.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTable is returned when a browse request names a table outside the
// allowlist.
var ErrUnknownTable = errors.New("store: unknown table")

// ProductsRelation describes the products table for the upsert writer.
var ProductsRelation = Relation{
	Table: "products",
	Columns: []string{
		"id", "title", "image", "price", "description", "brand",
		"model", "color", "category", "discount", "popular", "on_sale",
	},
}

// UsersRelation describes the users table for the upsert writer.
var UsersRelation = Relation{
	Table:   "users",
	Columns: []string{"id", "email", "username", "password", "name", "address", "phone"},
}

// browsable maps table names to their column lists. Only these tables can be
// read through TableRows; sort columns are validated against the same lists.
var browsable = map[string][]string{
	"products":       ProductsRelation.Columns,
	"users":          UsersRelation.Columns,
	"most_expensive": {"id", "product_name", "price", "category"},
	"ods_users": {"id", "user_id", "firstname", "lastname", "lat", "long",
		"street_number", "street", "zipcode", "city"},
}

// Tables returns the names of the browsable tables.
func Tables() []string {
	return []string{"products", "users", "most_expensive", "ods_users"}
}

// TablePage is one page of rows from a browsable table.
type TablePage struct {
	Table      string           `json:"table"`
	Columns    []string         `json:"columns"`
	Rows       []map[string]any `json:"rows"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	TotalItems int64            `json:"total_items"`
	TotalPages int64            `json:"total_pages"`
}

// TableRows reads one page of an allowlisted table, optionally sorted by an
// allowlisted column. sortOrder is "asc" unless explicitly "desc".
func (s *Store) TableRows(ctx context.Context, table string, page, perPage int, sortBy, sortOrder string) (*TablePage, error) {
	cols, ok := browsable[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	total, err := s.CountRows(ctx, table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), table)
	if sortBy != "" {
		valid := false
		for _, c := range cols {
			if c == sortBy {
				valid = true
				break
			}
		}
		if !valid {
			return nil, fmt.Errorf("store: invalid sort column %q for %s", sortBy, table)
		}
		dir := "ASC"
		if sortOrder == "desc" {
			dir = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", sortBy, dir)
	}
	query += " LIMIT ? OFFSET ?"

	rows, err := s.DB.QueryContext(ctx, query, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("store: browse %s: %w", table, err)
	}
	defer rows.Close()

	out := make([]map[string]any, 0, perPage)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("store: scan %s: %w", table, err)
		}
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				m[c] = string(b)
			} else {
				m[c] = vals[i]
			}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := (total + int64(perPage) - 1) / int64(perPage)
	return &TablePage{
		Table:      table,
		Columns:    cols,
		Rows:       out,
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// CountRows returns the row count of an allowlisted table.
func (s *Store) CountRows(ctx context.Context, table string) (int64, error) {
	if _, ok := browsable[table]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	var n int64
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count %s: %w", table, err)
	}
	return n, nil
}

// Stats returns the row count of every browsable table.
func (s *Store) Stats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64, len(browsable))
	for _, table := range Tables() {
		n, err := s.CountRows(ctx, table)
		if err != nil {
			return nil, err
		}
		stats[table] = n
	}
	return stats, nil
}

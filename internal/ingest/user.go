// CLAUDE:SUMMARY User loader: name re-nesting and address normalization to structured JSON.
package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/storefeed/internal/fetch"
	"github.com/hazyhaar/storefeed/internal/store"
)

// UserLoader ingests the users collection.
type UserLoader struct {
	Endpoint string
}

// NewUserLoader creates a loader for the users endpoint.
func NewUserLoader(endpoint string) *UserLoader {
	return &UserLoader{Endpoint: endpoint}
}

func (l *UserLoader) Name() string { return "users" }

func (l *UserLoader) URL() string { return l.Endpoint }

func (l *UserLoader) Relation() store.Relation { return store.UsersRelation }

// Transform maps raw user records to users rows. firstname/lastname are
// re-nested under name; address arrives either as a JSON-encoded string or an
// already-structured value and is normalized to the latter before being
// stored as JSON text.
func (l *UserLoader) Transform(raw []fetch.RawRecord) ([][]any, error) {
	rows := make([][]any, 0, len(raw))
	for i, item := range raw {
		row, err := userRow(item)
		if err != nil {
			return nil, fmt.Errorf("user %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func userRow(item fetch.RawRecord) ([]any, error) {
	for _, field := range []string{"id", "email", "username", "password", "name", "address", "phone"} {
		if _, ok := item[field]; !ok {
			return nil, fmt.Errorf("missing required field %q", field)
		}
	}

	id, err := asInt64(item["id"])
	if err != nil {
		return nil, fmt.Errorf("field id: %w", err)
	}

	name, ok := item["name"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("field name: not an object (%T)", item["name"])
	}
	firstname, ok := name["firstname"]
	if !ok {
		return nil, fmt.Errorf("field name.firstname: missing")
	}
	lastname, ok := name["lastname"]
	if !ok {
		return nil, fmt.Errorf("field name.lastname: missing")
	}
	nameJSON, err := json.Marshal(map[string]any{
		"firstname": firstname,
		"lastname":  lastname,
	})
	if err != nil {
		return nil, fmt.Errorf("field name: %w", err)
	}

	address := item["address"]
	if s, ok := address.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, fmt.Errorf("field address: invalid JSON string: %w", err)
		}
		address = decoded
	}
	addressJSON, err := json.Marshal(address)
	if err != nil {
		return nil, fmt.Errorf("field address: %w", err)
	}

	return []any{
		id,
		asString(item["email"]),
		asString(item["username"]),
		asString(item["password"]),
		string(nameJSON),
		string(addressJSON),
		asString(item["phone"]),
	}, nil
}

// CLAUDE:SUMMARY Denormalized user projection rebuild with per-record failure isolation.
package derive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/hazyhaar/storefeed/internal/store"
)

// OdsUsers rebuilds the ods_users projection: one flattened row per user with
// geolocation expanded to top-level columns. A structurally broken user is
// skipped with a warning; the other users still land.
type OdsUsers struct {
	store  *store.Store
	logger *slog.Logger
}

// NewOdsUsers creates the builder.
func NewOdsUsers(s *store.Store, logger *slog.Logger) *OdsUsers {
	if logger == nil {
		logger = slog.Default()
	}
	return &OdsUsers{store: s, logger: logger}
}

// Name returns the projection name used in run summaries.
func (o *OdsUsers) Name() string { return "ods_users" }

// Rebuild clears and repopulates the projection inside one transaction and
// returns the number of users successfully converted, which may be less than
// the number of primary users.
func (o *OdsUsers) Rebuild(ctx context.Context) (int, error) {
	n, err := o.rebuild(ctx)
	if err != nil {
		var rerr *RebuildError
		if !errors.As(err, &rerr) {
			err = &RebuildError{Projection: o.Name(), Cause: err}
		}
		return 0, err
	}
	return n, nil
}

type userBlob struct {
	ID      int64
	Name    string
	Address string
}

func (o *OdsUsers) rebuild(ctx context.Context) (int, error) {
	tx, err := o.store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ods_users`); err != nil {
		return 0, &RebuildError{Projection: o.Name(), Phase: PhaseClear, Cause: err}
	}

	var users []userBlob
	rows, err := tx.QueryContext(ctx, `SELECT id, name, address FROM users ORDER BY id`)
	if err != nil {
		return 0, &RebuildError{Projection: o.Name(), Phase: PhaseFetch, Cause: err}
	}
	for rows.Next() {
		var u userBlob
		if err := rows.Scan(&u.ID, &u.Name, &u.Address); err != nil {
			rows.Close()
			return 0, &RebuildError{Projection: o.Name(), Phase: PhaseFetch, Cause: err}
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, &RebuildError{Projection: o.Name(), Phase: PhaseFetch, Cause: err}
	}
	rows.Close()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ods_users (user_id, firstname, lastname, lat, long,
		street_number, street, zipcode, city)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, &RebuildError{Projection: o.Name(), Phase: PhaseInsert, Cause: err}
	}
	defer stmt.Close()

	count := 0
	for _, u := range users {
		row, err := odsRow(u)
		if err != nil {
			// Per-record isolation: one broken user never aborts the rebuild.
			o.logger.Warn("derive: skipping user",
				"user_id", u.ID, "error", &RecordError{UserID: u.ID, Cause: err})
			continue
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, &RebuildError{Projection: o.Name(), Phase: PhaseInsert, Cause: err}
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, &RebuildError{Projection: o.Name(), Phase: PhaseInsert, Cause: err}
	}
	return count, nil
}

// odsRow flattens one user's name/address blobs into an ods_users row.
// Absent keys default ("" for strings, 0.0 for geolocation); a blob that is
// not a JSON object, a non-object geolocation, or a non-numeric lat/long is
// an error and the row is skipped by the caller.
func odsRow(u userBlob) ([]any, error) {
	var name map[string]any
	if err := json.Unmarshal([]byte(u.Name), &name); err != nil {
		return nil, fmt.Errorf("name is not an object: %w", err)
	}
	var addr map[string]any
	if err := json.Unmarshal([]byte(u.Address), &addr); err != nil {
		return nil, fmt.Errorf("address is not an object: %w", err)
	}

	lat, long := 0.0, 0.0
	if geoVal, ok := addr["geolocation"]; ok {
		geo, ok := geoVal.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("geolocation is not an object (%T)", geoVal)
		}
		var err error
		if v, ok := geo["lat"]; ok {
			if lat, err = geoFloat(v); err != nil {
				return nil, fmt.Errorf("lat: %w", err)
			}
		}
		if v, ok := geo["long"]; ok {
			if long, err = geoFloat(v); err != nil {
				return nil, fmt.Errorf("long: %w", err)
			}
		}
	}

	return []any{
		u.ID,
		stringify(name["firstname"]),
		stringify(name["lastname"]),
		lat,
		long,
		stringify(addr["number"]),
		stringify(addr["street"]),
		stringify(addr["zipcode"]),
		stringify(addr["city"]),
	}, nil
}

func geoFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", v)
	}
}

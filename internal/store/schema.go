// CLAUDE:SUMMARY Applies the complete storefeed SQL schema: primary, derived, and run_log tables.
package store

import "database/sql"

// Schema is the complete storefeed schema. All statements are idempotent so
// the schema can be re-applied on every open. Table evolution is owned by an
// external migration step, not by this package.
const Schema = `
-- Primary relation: products as normalized from the upstream API
CREATE TABLE IF NOT EXISTS products (
    id          INTEGER PRIMARY KEY,
    title       TEXT NOT NULL,
    image       TEXT NOT NULL DEFAULT '',
    price       REAL NOT NULL DEFAULT 0,
    description TEXT NOT NULL DEFAULT '',
    brand       TEXT NOT NULL DEFAULT '',
    model       TEXT NOT NULL DEFAULT '',
    color       TEXT,
    category    TEXT NOT NULL DEFAULT '',
    discount    REAL,
    popular     INTEGER NOT NULL DEFAULT 0,
    on_sale     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_products_price ON products(price DESC);

-- Primary relation: users; name and address are JSON blobs
CREATE TABLE IF NOT EXISTS users (
    id       INTEGER PRIMARY KEY,
    email    TEXT NOT NULL UNIQUE,
    username TEXT NOT NULL UNIQUE,
    password TEXT NOT NULL,
    name     TEXT NOT NULL DEFAULT '{}',
    address  TEXT NOT NULL DEFAULT '{}',
    phone    TEXT NOT NULL DEFAULT ''
);

-- Derived: snapshot of the 10 most expensive products, no FK back to products
CREATE TABLE IF NOT EXISTS most_expensive (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    product_name TEXT NOT NULL,
    price        REAL NOT NULL,
    category     TEXT NOT NULL DEFAULT ''
);

-- Derived: denormalized user projection with flattened geolocation
CREATE TABLE IF NOT EXISTS ods_users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id       INTEGER,
    firstname     TEXT NOT NULL DEFAULT '',
    lastname      TEXT NOT NULL DEFAULT '',
    lat           REAL NOT NULL DEFAULT 0,
    long          REAL NOT NULL DEFAULT 0,
    street_number TEXT NOT NULL DEFAULT '',
    street        TEXT NOT NULL DEFAULT '',
    zipcode       TEXT NOT NULL DEFAULT '',
    city          TEXT NOT NULL DEFAULT ''
);

-- One row per orchestrated pipeline run
CREATE TABLE IF NOT EXISTS run_log (
    run_id         TEXT PRIMARY KEY,
    started_at     INTEGER NOT NULL,
    finished_at    INTEGER NOT NULL DEFAULT 0,
    ingest_ok      INTEGER NOT NULL DEFAULT 0,
    most_expensive INTEGER NOT NULL DEFAULT 0,
    ods_users      INTEGER NOT NULL DEFAULT 0,
    error          TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_run_log_started ON run_log(started_at DESC);
`

// ApplySchema executes the schema against db.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}

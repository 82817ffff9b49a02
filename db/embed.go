// Package db provides the embedded database schema.
package db

import _ "embed"

// Schema contains the DDL statements for all order-engine tables. Applied
// idempotently at startup; every statement uses IF NOT EXISTS.
//
//go:embed migrations/001_schema.sql
var Schema string

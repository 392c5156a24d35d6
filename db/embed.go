// Package db embeds the SQL schema applied at startup.
package db

import _ "embed"

// Schema creates the users, api_keys, pizzas and orders tables. Every
// statement is idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string

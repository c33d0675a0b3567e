// Package db provides the embedded database schema and demo seed data.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedProducts is the demo catalog as a JSON array.
//
//go:embed seed/products.json
var SeedProducts []byte

// SeedUsers is the demo customer list as a JSON array.
//
//go:embed seed/users.json
var SeedUsers []byte

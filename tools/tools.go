//go:build tools

package tools

// Pins the migration CLI used to author files under
// internal/adapters/postgres/migrations.

import (
	_ "github.com/pressly/goose/v3/cmd/goose"
)

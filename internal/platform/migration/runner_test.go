// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migration

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgx5DSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@db:5432/auth", "pgx5://u:p@db:5432/auth"},
		{"postgresql://u:p@db/auth", "pgx5://u:p@db/auth"},
		{"pgx5://db/auth", "pgx5://db/auth"},
		{"host=db dbname=auth", "host=db dbname=auth"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, pgx5DSN(tt.in))
	}
}

/*
TestEmbeddedMigrations verifies that the schema ships with paired up/down files.
*/
func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, "sql")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	assert.Contains(t, names, "000001_auth_schema.up.sql")
	assert.Contains(t, names, "000001_auth_schema.down.sql")

	up, err := fs.ReadFile(embeddedMigrations, "sql/000001_auth_schema.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "PARTITION BY LIST (deviceclass)")
	for _, partition := range []string{"session_pc", "session_tablet", "session_mobile", "session_other"} {
		assert.Contains(t, string(up), partition)
	}
}

package db

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationURL(t *testing.T) {
	for in, want := range map[string]string{
		"postgres://u:p@localhost:5432/books?sslmode=disable": "pgx5://u:p@localhost:5432/books?sslmode=disable",
		"postgresql://localhost/books":                        "pgx5://localhost/books",
		"pgx5://localhost/books":                              "pgx5://localhost/books",
	} {
		got, err := MigrationURL(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := MigrationURL("mysql://localhost/books")
	require.Error(t, err)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationsFS, "migrations/*.down.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	require.Len(t, downs, len(ups))

	body, err := fs.ReadFile(migrationsFS, "migrations/0001_create_books.up.sql")
	require.NoError(t, err)
	require.Contains(t, string(body), "books_isbn_key")
}

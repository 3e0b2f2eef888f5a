package pg

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	migrations "github.com/bremersee/authman/migrations/postgres"
)

func TestParseMigrations_Embedded(t *testing.T) {
	migs, err := NewMigrator(migrations.FS, migrations.Dir).ParseMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migs)
	require.Equal(t, 1, migs[0].Version)
	require.Equal(t, "init", migs[0].Name)
	require.Contains(t, migs[0].SQL, "oauth_approval")
}

func TestParseMigrations_OrderAndFilter(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0002_b.sql":   {Data: []byte("SELECT 2")},
		"sql/0001_a.sql":   {Data: []byte("SELECT 1")},
		"sql/README.md":    {Data: []byte("ignored")},
		"sql/x_bad.sql":    {Data: []byte("ignored")},
		"other/0003_c.sql": {Data: []byte("SELECT 3")},
	}
	migs, err := NewMigrator(fsys, "sql").ParseMigrations()
	require.NoError(t, err)
	require.Len(t, migs, 2)
	require.Equal(t, 1, migs[0].Version)
	require.Equal(t, 2, migs[1].Version)
}

func TestParseMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0001_a.sql": {Data: []byte("SELECT 1")},
		"sql/01_b.sql":   {Data: []byte("SELECT 1")},
	}
	_, err := NewMigrator(fsys, "sql").ParseMigrations()
	require.Error(t, err)
}

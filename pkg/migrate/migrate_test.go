package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("20250115090000")
	require.NoError(t, err)
	assert.Equal(t, int64(20250115090000), v)

	for _, bad := range []string{"", "abc", "2025", "202501150900001"} {
		_, err := ParseVersion(bad)
		assert.Error(t, err, bad)
	}
}

func TestPlanDirection(t *testing.T) {
	assert.Equal(t, directionNone, plan(5, 5))
	assert.Equal(t, directionUp, plan(4, 5))
	assert.Equal(t, directionDown, plan(6, 5))
}

func TestRunRequiresArguments(t *testing.T) {
	require.Error(t, Run(t.Context(), nil, DefaultDir, "up"))
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()

	path, err := CreateSQLMigration(dir, "Add Deal Notes!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_deal_notes.sql"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "-- +goose Up")
	assert.Contains(t, string(data), "-- +goose Down")

	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationRejectsEmptyName(t *testing.T) {
	_, err := CreateSQLMigration(t.TempDir(), "!!!")
	require.Error(t, err)
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20250101000000_missing_down.sql"), []byte("-- +goose Up\n"), 0o644))
	require.Error(t, ValidateDir(dir))

	dir = t.TempDir()
	body := []byte("-- +goose Up\n-- +goose Down\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20250101000000_a.sql"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20250101000000_b.sql"), body, 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestCreateSQLMigrationUsesClock(t *testing.T) {
	orig := now
	t.Cleanup(func() { now = orig })
	now = func() time.Time { return time.Date(2025, 1, 20, 8, 30, 0, 0, time.UTC) }

	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "backfill_vendor_label")
	require.NoError(t, err)
	assert.Equal(t, "20250120083000_backfill_vendor_label.sql", filepath.Base(path))

	_, err = CreateSQLMigration(dir, "backfill_vendor_label")
	require.Error(t, err, "same clock tick must not overwrite")

	versions, err := Versions(dir)
	require.NoError(t, err)
	assert.Equal(t, []int64{20250120083000}, versions)
}

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roster/roster/pkg/roster"
	"github.com/roster/roster/pkg/stores"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand("test", "none", "today")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "roster.db")
}

func TestAddListShow(t *testing.T) {
	db := tempDB(t)

	out, err := run(t, "--db", db, "add", "--id", "1", "--name", "Ann", "--gender", "Female")
	require.NoError(t, err)
	assert.Contains(t, out, "Added 1")

	_, err = run(t, "--db", db, "add", "--id", "2", "--name", "Bo", "--program", "BS EE")
	require.NoError(t, err)

	out, err = run(t, "--db", db, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Ann")
	assert.Contains(t, out, "BS EE")
	assert.Contains(t, out, "PROGRAM")

	out, err = run(t, "--db", db, "--json", "list")
	require.NoError(t, err)
	var records []stores.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Equal(t, []stores.Record{
		{ID: "1", Name: "Ann", Program: "BS CoE", Gender: "Female", Status: "Enrolled"},
		{ID: "2", Name: "Bo", Program: "BS EE", Gender: "Male", Status: "Enrolled"},
	}, records)

	out, err = run(t, "--db", db, "show", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Name:    Bo")
}

func TestAddRejectsDuplicateAndMissingFields(t *testing.T) {
	db := tempDB(t)

	_, err := run(t, "--db", db, "add", "--id", "1", "--name", "Ann")
	require.NoError(t, err)

	_, err = run(t, "--db", db, "add", "--id", "1", "--name", "Ann again")
	assert.ErrorIs(t, err, roster.ErrIDExists)

	_, err = run(t, "--db", db, "add", "--id", "3")
	var verr *roster.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"name"}, verr.Fields)
}

func TestUpdateKeepsUnsetFields(t *testing.T) {
	db := tempDB(t)

	_, err := run(t, "--db", db, "add", "--id", "1", "--name", "Ann", "--gender", "Female", "--program", "BS ECE")
	require.NoError(t, err)

	_, err = run(t, "--db", db, "update", "1", "--status", "Not Enrolled")
	require.NoError(t, err)

	out, err := run(t, "--db", db, "--json", "show", "1")
	require.NoError(t, err)
	var rec stores.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, stores.Record{ID: "1", Name: "Ann", Program: "BS ECE", Gender: "Female", Status: "Not Enrolled"}, rec)

	_, err = run(t, "--db", db, "update", "404", "--status", "Enrolled")
	assert.ErrorIs(t, err, roster.ErrNotFound)
}

func TestDeleteAndExists(t *testing.T) {
	db := tempDB(t)

	_, err := run(t, "--db", db, "add", "--id", "1", "--name", "Ann")
	require.NoError(t, err)

	out, err := run(t, "--db", db, "exists", "1")
	require.NoError(t, err)
	assert.Equal(t, "true", strings.TrimSpace(out))

	_, err = run(t, "--db", db, "delete", "1")
	require.NoError(t, err)

	out, err = run(t, "--db", db, "exists", "1")
	require.NoError(t, err)
	assert.Equal(t, "false", strings.TrimSpace(out))

	_, err = run(t, "--db", db, "rm", "1")
	assert.ErrorIs(t, err, roster.ErrNotFound)
}

func TestExportImport(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	dst := filepath.Join(dir, "dst.db")
	csvPath := filepath.Join(dir, "out.csv")
	jsonPath := filepath.Join(dir, "out.json")

	_, err := run(t, "--db", src, "add", "--id", "1", "--name", "Ann")
	require.NoError(t, err)

	_, err = run(t, "--db", src, "export", "csv", csvPath)
	require.NoError(t, err)
	_, err = run(t, "--db", src, "export", "json", jsonPath)
	require.NoError(t, err)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `    "name": "Ann"`)

	out, err := run(t, "--db", dst, "import", csvPath)
	require.NoError(t, err)
	assert.Equal(t, "Imported 1 records from "+csvPath, strings.TrimSpace(out))

	out, err = run(t, "--db", dst, "exists", "1")
	require.NoError(t, err)
	assert.Equal(t, "true", strings.TrimSpace(out))

	_, err = run(t, "--db", dst, "import", csvPath)
	assert.ErrorIs(t, err, stores.ErrDuplicateKey)

	_, err = run(t, "--db", dst, "import", filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, stores.ErrFileNotFound)
}

func TestInitWritesConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "roster.yaml")
	db := filepath.Join(dir, "data.db")

	out, err := run(t, "--config", cfgPath, "--db", db, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Created config file")
	assert.Contains(t, out, "Store ready (sqlite)")
	assert.FileExists(t, db)

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), db)

	out, err = run(t, "--config", cfgPath, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Using existing config file")

	// The config file alone now points at the database.
	_, err = run(t, "--config", cfgPath, "add", "--id", "7", "--name", "Gi")
	require.NoError(t, err)
	out, err = run(t, "--db", db, "exists", "7")
	require.NoError(t, err)
	assert.Equal(t, "true", strings.TrimSpace(out))
}

func TestDefaultConfigFileIsUsed(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := run(t, "--db", "custom.db", "init")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "roster.yaml"))

	_, err = run(t, "add", "--id", "1", "--name", "Ann")
	require.NoError(t, err)

	out, err := run(t, "--db", "custom.db", "exists", "1")
	require.NoError(t, err)
	assert.Equal(t, "true", strings.TrimSpace(out))
	assert.NoFileExists(t, filepath.Join(dir, "roster.db"))
}

func TestMemoryInitReportsDriver(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := run(t, "--driver", "memory", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Store ready (memory)")
}

func TestInvalidDriver(t *testing.T) {
	_, err := run(t, "--driver", "oracle", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of")
}

func TestMemoryDriver(t *testing.T) {
	out, err := run(t, "--driver", "memory", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No students found")
}

package jsonl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID   string `json:"id"`
	Size int    `json:"size"`
}

func TestWriteAllReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	in := []row{{"a", 1}, {"b", 2}}

	require.NoError(t, WriteAll(path, in))
	out, err := ReadAll[row](path)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// Rewrite replaces the content.
	require.NoError(t, WriteAll(path, in[:1]))
	out, err = ReadAll[row](path)
	require.NoError(t, err)
	assert.Equal(t, in[:1], out)
}

func TestRead_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixed.jsonl")
	content := "{\"id\":\"a\",\"size\":1}\n\nnot json\n{\"id\":\"b\",\"size\":2}\n{\"id\":3}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	raw, err := Read(path)
	require.NoError(t, err)
	assert.Len(t, raw, 3)

	rows, err := ReadAll[row](path)
	require.NoError(t, err)
	assert.Equal(t, []row{{"a", 1}, {"b", 2}}, rows, "lines that do not decode are dropped")
}

func TestReadAll_MissingFile(t *testing.T) {
	rows, err := ReadAll[row](filepath.Join(t.TempDir(), "absent.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = Read(filepath.Join(t.TempDir(), "absent.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWrite_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.jsonl")
	require.NoError(t, Write(path, []json.RawMessage{json.RawMessage(`{"id":"x"}`)}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "x.jsonl", entries[0].Name())
}

func TestWrite_MissingDirectory(t *testing.T) {
	err := Write(filepath.Join(t.TempDir(), "nope", "x.jsonl"), nil)
	assert.Error(t, err)
}

func TestTouch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.jsonl")
	require.NoError(t, Touch(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))
	require.NoError(t, Touch(path))
	info, _ = os.Stat(path)
	assert.Equal(t, int64(3), info.Size(), "existing files are left alone")
}

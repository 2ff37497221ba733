package snapshot_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/hoshi/pkg/snapshot"
)

func TestEncodeDecode_Compressible(t *testing.T) {
	t.Parallel()

	state := []byte("1|" + strings.Repeat("Number|Plus|Expr|", 200))

	data, info, err := snapshot.Encode(state)
	require.NoError(t, err)

	assert.True(t, info.Compressed)
	assert.Equal(t, len(state), info.RawSize)
	assert.Equal(t, len(data), info.StoredSize)
	assert.Less(t, info.StoredSize, info.RawSize)
	assert.True(t, bytes.HasPrefix(data, []byte(snapshot.Magic)))

	got, err := snapshot.Decode(data, snapshot.DefaultMaxSize)
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestEncodeDecode_Incompressible(t *testing.T) {
	t.Parallel()

	state := []byte("1|g|")

	data, info, err := snapshot.Encode(state)
	require.NoError(t, err)
	assert.False(t, info.Compressed)
	assert.Contains(t, info.String(), "stored")

	got, err := snapshot.Decode(data, snapshot.DefaultMaxSize)
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestDecode_Rejects(t *testing.T) {
	t.Parallel()

	valid, _, err := snapshot.Encode([]byte(strings.Repeat("abc|", 100)))
	require.NoError(t, err)

	newer := bytes.Clone(valid)
	newer[len(snapshot.Magic)] = snapshot.FormatVersion + 1

	truncated := valid[:len(valid)-3]

	tests := []struct {
		name    string
		data    []byte
		maxSize uint64
		want    error
	}{
		{"empty", nil, snapshot.DefaultMaxSize, snapshot.ErrNotSnapshot},
		{"bad magic", []byte("JUNKJUNKJUNK"), snapshot.DefaultMaxSize, snapshot.ErrNotSnapshot},
		{"newer format", newer, snapshot.DefaultMaxSize, snapshot.ErrUnsupportedFormat},
		{"truncated", truncated, snapshot.DefaultMaxSize, snapshot.ErrCorrupt},
		{"too large", valid, 10, snapshot.ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, decodeErr := snapshot.Decode(tt.data, tt.maxSize)
			require.ErrorIs(t, decodeErr, tt.want)
		})
	}
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "arith"+snapshot.Extension)
	state := []byte("1|backend: lexicon|3|Expr|0|Number|1|Plus|2|")

	info, err := snapshot.Save(path, state)
	require.NoError(t, err)

	stat, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(info.StoredSize), stat.Size())

	got, err := snapshot.Load(path)
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := snapshot.Load(filepath.Join(t.TempDir(), "missing.hsnp"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

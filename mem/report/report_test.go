package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/joshuapare/memkit/mem/alloc"
)

func sampleEntries() []Entry {
	return []Entry{
		{Name: "scratch", Stats: alloc.Stats{Kind: "linear", Capacity: 1 << 20, BytesInUse: 262144, Allocations: 12}},
		{Name: "heap", Stats: alloc.Stats{
			Kind: "freelist", Capacity: 4096, BytesInUse: 1024, Allocations: 3,
			FreeBlocks: 2, Segments: 1, Splits: 4, CoalesceForward: 1,
		}},
	}
}

func TestText_Table(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Text(&out, language.English, sampleEntries()...))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, lines[1], "1,048,576")
	assert.Contains(t, lines[1], "262,144")
	assert.Contains(t, lines[1], "25.0%")
	assert.Contains(t, lines[2], "4,096")

	kind := strings.Index(lines[0], "KIND")
	assert.Equal(t, "linear", lines[1][kind:kind+len("linear")], "columns line up")
}

func TestText_GroupsForLanguage(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Text(&out, language.German, sampleEntries()[0]))
	assert.Contains(t, out.String(), "1.048.576")
}

func TestCounters_SkipsQuietEntries(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Counters(&out, language.English, sampleEntries()...))
	assert.Equal(t, "heap: 0 grows, 4 splits, 1 forward / 0 backward coalesces, 0 relocations\n", out.String())
}

func TestJSON_RoundTrip(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, JSON(&out, sampleEntries()...))

	var got []Entry
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, sampleEntries(), got)
	assert.Contains(t, out.String(), `"name": "heap"`)
	assert.Contains(t, out.String(), `"bytes_in_use": 1024`)

	out.Reset()
	require.NoError(t, JSON(&out))
	assert.Equal(t, "[]\n", out.String())
}

func TestSnapshot(t *testing.T) {
	l, err := alloc.NewLinear(256, nil)
	require.NoError(t, err)
	_, err = l.Allocate(100, 4)
	require.NoError(t, err)

	e := Snapshot("frame", l)
	assert.Equal(t, "frame", e.Name)
	assert.Equal(t, "linear", e.Kind)
	assert.Equal(t, 100, e.BytesInUse)

	l.Reset()
	require.NoError(t, l.Close())
}

func TestBytes(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 B"},
		{1023, "1,023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1 << 20, "1.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Bytes(language.English, tt.n))
	}
}

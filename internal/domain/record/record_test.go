package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineParseRoundTrip(t *testing.T) {
	rec := Record{ConsumerID: "a1b2c3d4", Sequence: 17, ReceivedAt: 1700000000}

	line := rec.Line()
	assert.Equal(t, "Consumer a1b2c3d4 processed package 17 (timestamp: 1700000000)", line)

	got, err := Parse(line)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestParseRejectsMalformedLines(t *testing.T) {
	for _, line := range []string{
		"",
		"Consumer a1b2c3d4 processed package",
		"Consumer a1b2c3d4 processed package seventeen (timestamp: 1700000000)",
		"some unrelated log output",
		"Consumer a1b2c3d4 processed package 17 (timestamp: 17000000", // truncated tail line
	} {
		_, err := Parse(line)
		assert.Error(t, err, "line %q", line)
	}
}

func TestFileNameRoundTrip(t *testing.T) {
	name := FileName("a1b2c3d4")
	assert.Equal(t, "consumer_a1b2c3d4.txt", name)

	id, ok := ConsumerFromFileName(name)
	require.True(t, ok)
	assert.Equal(t, "a1b2c3d4", id)

	_, ok = ConsumerFromFileName("unrelated.txt")
	assert.False(t, ok)

	_, ok = ConsumerFromFileName("consumer_.txt")
	assert.False(t, ok)
}

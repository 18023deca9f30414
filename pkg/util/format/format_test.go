package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatBytes(t *testing.T) {
	require.Equal(t, "512B", FormatBytes(512))
	require.Equal(t, "4KB", FormatBytes(4096))
	require.Equal(t, "1.50KB", FormatBytes(1536))
	require.Equal(t, "1MB", FormatBytes(1<<20))
}

func TestParseBytes(t *testing.T) {
	cases := map[string]uint64{
		"4096":   4096,
		"0x1000": 4096,
		"4KB":    4096,
		"4k":     4096,
		"32 KB":  32 * 1024,
		"1MB":    1 << 20,
		"2G":     2 << 30,
		"7B":     7,
	}
	for in, want := range cases {
		got, err := ParseBytes(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "KB", "abc", "4XB", "1KBB"} {
		_, err := ParseBytes(in)
		require.Error(t, err, in)
	}
}

func TestParseBytesOverflow(t *testing.T) {
	_, err := ParseBytes("16777216T")
	require.Error(t, err)

	_, err = ParseBytes("18446744073709551616")
	require.Error(t, err)

	got, err := ParseBytes("16777215T")
	require.NoError(t, err)
	require.Equal(t, uint64(16777215)<<40, got)
}

package pbar

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderThrottles(t *testing.T) {
	var out bytes.Buffer
	pb := NewProgressBarState(&out, "Erasing", 4*4096)

	pb.Update(4096)
	require.Contains(t, out.String(), " 25%")

	out.Reset()
	pb.Update(2 * 4096)
	require.Empty(t, out.String())

	pb.Update(4 * 4096)
	require.Contains(t, out.String(), "100%")
	require.Contains(t, out.String(), "(16KB/16KB)")
	require.Contains(t, out.String(), strings.Repeat("=", 20))

	pb.Finish()
	require.True(t, strings.HasSuffix(out.String(), "\n"))
}

package buildinfo

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	require.Equal(t, Info{Version: "N/A", Date: "N/A", Commit: "N/A"}, New("", "", ""))
	require.Equal(t, Info{Version: "v1", Date: "2026-10-18", Commit: "deadbeef"}, New("v1", "2026-10-18", "deadbeef"))
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	New("v1", "", "abc").Print(&buf)
	require.Equal(t, "Build version: v1\nBuild date: N/A\nBuild commit: abc\n", buf.String())
}

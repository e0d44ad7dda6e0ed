package duffle

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHomeEnvOverride(t *testing.T) {
	t.Setenv("DUFFLE_HOME", "/custom/duffle")
	home, err := Home()
	require.NoError(t, err)
	require.Equal(t, "/custom/duffle", home)
}

func TestHomeDefault(t *testing.T) {
	t.Setenv("DUFFLE_HOME", "")
	home, err := Home()
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(home, filepath.Join("", ".duffle")), "default home should end in .duffle, got %s", home)
}

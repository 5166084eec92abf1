package sentropy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaultConfig(t *testing.T) {
	SetDefaultConfig()
	assert.Equal(t, 32, Config.Pipeline.KeywordLimit)
	assert.Equal(t, []string{"nasa.gov"}, Config.Pipeline.HostDenylist)
	assert.NoError(t, assertConfigInvariants())
}

func TestReadConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentropy.yaml")
	contents := "pipeline:\n  keyword_limit: 16\n  host_denylist:\n    - example.invalid\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	require.NoError(t, ReadConfigFile(path))
	assert.Equal(t, 16, Config.Pipeline.KeywordLimit)
	assert.Equal(t, []string{"example.invalid"}, Config.Pipeline.HostDenylist)

	SetDefaultConfig()
}

func TestAssertConfigInvariantsCatchesBadDuration(t *testing.T) {
	SetDefaultConfig()
	Config.Pipeline.ArticleTimeout = "not-a-duration"
	err := assertConfigInvariants()
	assert.Error(t, err)
	SetDefaultConfig()
}

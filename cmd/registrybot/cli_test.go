package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/chainregbot/core/buildinfo"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, buildinfo.Version))
}

func TestCatalogCommand(t *testing.T) {
	reg := t.TempDir()
	for _, name := range []string{"osmosis", "akash", "_IBC", "cosmoshub"} {
		require.NoError(t, os.Mkdir(filepath.Join(reg, name), 0o755))
	}
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("registry:\n  dir: "+reg+"\n  page_size: 2\n"), 0o600))

	out, err := execute(t, "catalog", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "page 1/2")
	assert.Contains(t, out, "page 2/2")
	assert.Contains(t, out, "3 chains")
	assert.NotContains(t, out, "_IBC")
	assert.Less(t, strings.Index(out, "akash"), strings.Index(out, "osmosis"))
}

func TestConfigPathPrecedence(t *testing.T) {
	t.Setenv(configEnvVar, "")
	f := &rootFlags{}
	assert.Equal(t, defaultConfigPath, f.configPath())

	t.Setenv(configEnvVar, "/etc/bot.yaml")
	assert.Equal(t, "/etc/bot.yaml", f.configPath())

	f.config = "local.yaml"
	assert.Equal(t, "local.yaml", f.configPath())
}

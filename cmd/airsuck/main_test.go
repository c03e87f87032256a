package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Version(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "airsuck")
	assert.Contains(t, out.String(), "Version:")
}

func TestRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"format", "input", "receiver", "redis", "nats", "postgres", "metrics-addr", "config", "env-file", "version"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestRootCmd_InvalidFormat(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "sbs", "--env-file", ""})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestRootCmd_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "frames.avr")
	require.NoError(t, os.WriteFile(input, []byte("*8d4840d6202cc371c32ce0576098;\n"), 0o644))

	config := filepath.Join(dir, "airsuck.yaml")
	require.NoError(t, os.WriteFile(config, []byte("format: nmea\nrecordLog: true\nlogDir: "+dir+"\n"), 0o644))

	// the flag wins over the file
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", config, "--env-file", "", "--format", "avr", "--input", input})
	require.NoError(t, cmd.Execute())

	logs, err := filepath.Glob(filepath.Join(dir, "airsuck_*.log"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	data, err := os.ReadFile(logs[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "KLM1023")
}

func TestRootCmd_MissingConfigFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "--env-file", ""})
	assert.Error(t, cmd.Execute())
}

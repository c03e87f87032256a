package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowVersion(t *testing.T) {
	var buf bytes.Buffer
	ShowVersion(&buf)
	assert.Contains(t, buf.String(), "Version: "+Version)
	assert.Contains(t, buf.String(), "Git Commit: "+GitCommit)
}

// TestApplication_LoggerConfiguration tests logger setup
func TestApplication_LoggerConfiguration(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		logFormat string
		debug     bool
	}{
		{name: "Verbose logging", verbose: true, logFormat: "text", debug: true},
		{name: "Normal logging", verbose: false, logFormat: "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Verbose = tt.verbose
			cfg.LogFormat = tt.logFormat

			app := NewApplication(cfg)
			require.NotNil(t, app.logger)
			assert.Equal(t, tt.debug, app.logger.IsLevelEnabled(logrus.DebugLevel))
		})
	}
}

func newTestApplication(t *testing.T, cfg Config, input string) (*Application, *bytes.Buffer) {
	t.Helper()
	cfg.Tracing = false
	app := NewApplication(cfg)
	app.logger.SetOutput(&bytes.Buffer{})
	app.stdin = strings.NewReader(input)
	out := &bytes.Buffer{}
	app.stdout = out
	return app, out
}

func TestApplication_StartAVRToStdout(t *testing.T) {
	input := strings.Join([]string{
		identLine,
		"",
		"garbage",
		"*8d40621d58c382d690c8ac2863a7;",
		"*8d40621d58c386435cc412692ad6;",
	}, "\n")

	app, out := newTestApplication(t, DefaultConfig(), input)
	require.NoError(t, app.Start(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "KLM1023")
	// the even/odd pair resolves a global position
	assert.Contains(t, lines[2], `"locationMeta":"CPRGlobal"`)

	s := app.pipeline.Stats()
	assert.Equal(t, uint64(3), s.SSRFrames)
	assert.Equal(t, uint64(1), s.SSRInvalid)
	assert.Equal(t, 2, app.engine.Len())
}

func TestApplication_StartNMEAToRecordLog(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Format = FormatNMEA
	cfg.LogDir = dir
	cfg.RecordLog = true
	cfg.BaseStation = true

	input := strings.Join([]string{aisLine, aisFrag1, aisFrag2}, "\n")
	app, out := newTestApplication(t, cfg, input)
	require.NoError(t, app.Start(context.Background()))
	assert.Empty(t, out.String())

	records, err := filepath.Glob(filepath.Join(dir, "airsuck_*.log"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	data, err := os.ReadFile(records[0])
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
	assert.Contains(t, string(data), `"mmsi":369190000`)

	// AIS has no BaseStation equivalent
	sbs, err := filepath.Glob(filepath.Join(dir, "basestation_*.log"))
	require.NoError(t, err)
	require.Len(t, sbs, 1)
	data, err = os.ReadFile(sbs[0])
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestApplication_StartBeastFile(t *testing.T) {
	frame := []byte{0x8d, 0x48, 0x40, 0xd6, 0x20, 0x2c, 0xc3, 0x71, 0xc3, 0x2c, 0xe0, 0x57, 0x60, 0x98}
	stream := append([]byte{0x1a, '3', 0, 0, 0, 0, 0, 0, 0x40}, frame...)

	path := filepath.Join(t.TempDir(), "capture.bin")
	require.NoError(t, os.WriteFile(path, stream, 0o644))

	cfg := DefaultConfig()
	cfg.Format = FormatBeast
	cfg.Input = path
	app, out := newTestApplication(t, cfg, "")
	require.NoError(t, app.Start(context.Background()))

	assert.Contains(t, out.String(), "KLM1023")
}

func TestApplication_StartErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{name: "invalid config", modify: func(c *Config) { c.Format = "sbs" }, errMsg: "unknown format"},
		{name: "missing input", modify: func(c *Config) { c.Input = filepath.Join(t.TempDir(), "missing") }, errMsg: "failed to open input"},
		{name: "bad receiver", modify: func(c *Config) { c.Receiver = "1,2,3" }, errMsg: "receiver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			app, _ := newTestApplication(t, cfg, "")
			err := app.Start(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestApplication_StartCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	app, _ := newTestApplication(t, DefaultConfig(), identLine)
	assert.NoError(t, app.Start(ctx))
}

package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func TestNewRotator(t *testing.T) {
	tests := []struct {
		name   string
		subdir string
		prefix string
		useUTC bool
		want   string
	}{
		{name: "default prefix", subdir: "logs", want: "airsuck_"},
		{name: "custom prefix", subdir: "logs", prefix: "sbs", want: "sbs_"},
		{name: "utc", subdir: "logs", useUTC: true, want: "airsuck_" + time.Now().UTC().Format(dateLayout)},
		{name: "nested directory", subdir: "nested/a/b", want: "airsuck_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), tt.subdir)

			r, err := NewRotator(dir, tt.prefix, tt.useUTC, testLogger())
			require.NoError(t, err)
			defer r.Close()

			assert.DirExists(t, dir)
			assert.FileExists(t, r.Path())
			assert.Contains(t, filepath.Base(r.Path()), tt.want)
		})
	}
}

func TestRotator_Write(t *testing.T) {
	r, err := NewRotator(t.TempDir(), "", false, testLogger())
	require.NoError(t, err)
	defer r.Close()

	line := "{\"type\":\"airSSR\"}\n"
	n, err := r.Write([]byte(line))
	require.NoError(t, err)
	assert.Equal(t, len(line), n)

	content, err := os.ReadFile(r.Path())
	require.NoError(t, err)
	assert.Equal(t, line, string(content))
}

func TestRotator_RotatesOnDateChange(t *testing.T) {
	dir := t.TempDir()
	c := &clock{t: time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)}

	r, err := newRotatorAt(dir, c)
	require.NoError(t, err)

	_, err = r.Write([]byte("day one\n"))
	require.NoError(t, err)
	first := r.Path()
	assert.Equal(t, filepath.Join(dir, "airsuck_2024-03-01.log"), first)

	c.set(time.Date(2024, 3, 2, 0, 0, 1, 0, time.UTC))
	_, err = r.Write([]byte("day two\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "airsuck_2024-03-02.log"), r.Path())

	require.NoError(t, r.Close())

	assert.NoFileExists(t, first)
	gz, err := os.Open(first + ".gz")
	require.NoError(t, err)
	defer gz.Close()
	zr, err := gzip.NewReader(gz)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "day one\n", string(data))
}

func newRotatorAt(dir string, c *clock) (*Rotator, error) {
	r := &Rotator{dir: dir, prefix: DefaultPrefix, useUTC: true, logger: testLogger(), now: c.now}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.openLocked(r.today()); err != nil {
		return nil, err
	}
	return r, nil
}

func TestRotator_Files(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRotator(dir, "", false, testLogger())
	require.NoError(t, err)
	defer r.Close()

	for _, name := range []string{"airsuck_2023-01-01.log", "airsuck_2023-01-02.log.gz", "other_2023-01-01.log"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	files, err := r.Files()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range files {
		names[filepath.Base(f)] = true
	}
	assert.True(t, names["airsuck_2023-01-01.log"])
	assert.True(t, names["airsuck_2023-01-02.log.gz"])
	assert.False(t, names["other_2023-01-01.log"])
	assert.True(t, names[filepath.Base(r.Path())])
}

func TestRotator_Cleanup(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRotator(dir, "", false, testLogger())
	require.NoError(t, err)
	defer r.Close()

	old := filepath.Join(dir, "airsuck_2023-01-01.log.gz")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0644))
	oldTime := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(old, oldTime, oldTime))

	recent := filepath.Join(dir, "airsuck_2023-12-31.log")
	require.NoError(t, os.WriteFile(recent, []byte("recent"), 0644))

	removed, err := r.Cleanup(5)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, old)
	assert.FileExists(t, recent)
	assert.FileExists(t, r.Path())

	_, err = r.Cleanup(0)
	assert.ErrorContains(t, err, "maxDays must be positive")
}

func TestRotator_WriteAfterClose(t *testing.T) {
	r, err := NewRotator(t.TempDir(), "", false, testLogger())
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = r.Write([]byte("late"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, r.Rotate(), ErrClosed)
}

func TestRotator_ConcurrentWrites(t *testing.T) {
	r, err := NewRotator(t.TempDir(), "", false, testLogger())
	require.NoError(t, err)
	defer r.Close()

	const workers, lines = 8, 100
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < lines; j++ {
				if _, err := fmt.Fprintf(r, "worker-%d-line-%d\n", id, j); err != nil {
					t.Errorf("write: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	content, err := os.ReadFile(r.Path())
	require.NoError(t, err)
	assert.Contains(t, string(content), "worker-0-line-0")
	assert.Contains(t, string(content), fmt.Sprintf("worker-%d-line-%d", workers-1, lines-1))
}

func BenchmarkRotator_Write(b *testing.B) {
	r, err := NewRotator(b.TempDir(), "", false, testLogger())
	require.NoError(b, err)
	defer r.Close()

	data := []byte("benchmark record\n")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Write(data); err != nil {
			b.Fatal(err)
		}
	}
}

// Package logging provides the daily rotated record files written by the
// file and BaseStation sinks.
package logging

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPrefix = "airsuck"
	dateLayout    = "2006-01-02"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("rotator closed")

// Rotator is an io.Writer over one file per day, named
// <prefix>_<date>.log. The previous day's file is gzip compressed when the
// date changes.
type Rotator struct {
	dir    string
	prefix string
	useUTC bool
	logger *logrus.Logger
	now    func() time.Time

	mu   sync.Mutex
	file *os.File
	date string

	compressing sync.WaitGroup
}

// NewRotator creates dir if needed and opens today's file.
func NewRotator(dir, prefix string, useUTC bool, logger *logrus.Logger) (*Rotator, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	r := &Rotator{
		dir:    dir,
		prefix: prefix,
		useUTC: useUTC,
		logger: logger,
		now:    time.Now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.openLocked(r.today()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Rotator) today() string {
	now := r.now()
	if r.useUTC {
		now = now.UTC()
	}
	return now.Format(dateLayout)
}

func (r *Rotator) pathFor(date string) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s_%s.log", r.prefix, date))
}

// openLocked switches to the file for date, compressing the previous one.
func (r *Rotator) openLocked(date string) error {
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			r.logger.WithError(err).Error("Failed to close old log file")
		}
		old := r.pathFor(r.date)
		r.compressing.Add(1)
		go func() {
			defer r.compressing.Done()
			r.compress(old)
		}()
	}

	path := r.pathFor(date)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		r.file = nil
		return fmt.Errorf("failed to create log file %s: %w", path, err)
	}

	r.file = f
	r.date = date
	r.logger.WithField("file", path).Info("Opened log file")
	return nil
}

// Write appends p to the current day's file, rotating first when the date
// has changed.
func (r *Rotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return 0, ErrClosed
	}
	if today := r.today(); today != r.date {
		r.logger.WithFields(logrus.Fields{
			"old_date": r.date,
			"new_date": today,
		}).Info("Rotating log file")
		if err := r.openLocked(today); err != nil {
			return 0, err
		}
	}
	return r.file.Write(p)
}

// Rotate forces the date check without writing.
func (r *Rotator) Rotate() error {
	_, err := r.Write(nil)
	return err
}

// Run checks for a date change every interval so that idle days are still
// rotated and compressed.
func (r *Rotator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Rotate(); err != nil && !errors.Is(err, ErrClosed) {
				r.logger.WithError(err).Error("Failed to rotate log file")
			}
		}
	}
}

// compress gzips path next to itself and removes the original.
func (r *Rotator) compress(path string) {
	target := path + ".gz"
	log := r.logger.WithFields(logrus.Fields{"source": path, "target": target})

	src, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Error("Failed to open log file for compression")
		}
		return
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		log.WithError(err).Error("Failed to create compressed file")
		return
	}

	gz := gzip.NewWriter(dst)
	gz.Name = filepath.Base(path)
	gz.ModTime = r.now()

	if _, err := io.Copy(gz, src); err != nil {
		gz.Close()
		dst.Close()
		log.WithError(err).Error("Failed to compress log file")
		return
	}
	if err := gz.Close(); err != nil {
		dst.Close()
		log.WithError(err).Error("Failed to flush compressed file")
		return
	}
	if err := dst.Close(); err != nil {
		log.WithError(err).Error("Failed to close compressed file")
		return
	}
	if err := os.Remove(path); err != nil {
		log.WithError(err).Error("Failed to remove original log file")
		return
	}
	log.Info("Log file compressed")
}

// Path returns the file currently written to.
func (r *Rotator) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.date == "" {
		return ""
	}
	return r.pathFor(r.date)
}

// Files lists every file of this rotator, compressed or not.
func (r *Rotator) Files() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(r.dir, r.prefix+"_*.log*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list log files: %w", err)
	}
	return files, nil
}

// Cleanup removes files last modified more than maxDays ago and returns
// how many were removed. The current file is kept.
func (r *Rotator) Cleanup(maxDays int) (int, error) {
	if maxDays <= 0 {
		return 0, fmt.Errorf("maxDays must be positive, got %d", maxDays)
	}

	files, err := r.Files()
	if err != nil {
		return 0, err
	}

	cutoff := r.now().AddDate(0, 0, -maxDays)
	current := r.Path()

	removed := 0
	for _, file := range files {
		if file == current {
			continue
		}
		info, err := os.Stat(file)
		if err != nil {
			r.logger.WithError(err).WithField("file", file).Warn("Failed to stat log file")
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(file); err != nil {
			r.logger.WithError(err).WithField("file", file).Error("Failed to remove old log file")
			continue
		}
		removed++
	}

	r.logger.WithField("count", removed).Info("Cleaned up old log files")
	return removed, nil
}

// Close closes the current file and waits for pending compression.
func (r *Rotator) Close() error {
	r.mu.Lock()
	var err error
	if r.file != nil {
		err = r.file.Close()
		r.file = nil
	}
	r.mu.Unlock()

	r.compressing.Wait()
	return err
}

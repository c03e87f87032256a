package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// File writes envelopes as JSON lines, typically to a logging.Rotator.
type File struct {
	mu  sync.Mutex
	out io.WriteCloser
}

// NewFile creates a JSON lines sink on out.
func NewFile(out io.WriteCloser) *File {
	return &File{out: out}
}

func (f *File) Write(_ context.Context, env Envelope) error {
	line, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	line = append(line, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.out.Write(line); err != nil {
		return fmt.Errorf("failed to write envelope: %w", err)
	}
	return nil
}

func (f *File) Close() error {
	return f.out.Close()
}

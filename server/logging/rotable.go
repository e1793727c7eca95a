package logging

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// RotableLogger is an io.Writer backed by a file that can be moved aside.
type RotableLogger struct {
	path string
	fd   *os.File
	mu   sync.Mutex
}

func NewRotableLogger(path string) (*RotableLogger, error) {
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &RotableLogger{path: path, fd: fd}, nil
}

func (r *RotableLogger) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fd.Write(p)
}

// Rotate renames the current file with a timestamp suffix and starts a new one.
func (r *RotableLogger) Rotate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.fd.Close(); err != nil {
		return err
	}

	rotated := fmt.Sprintf("%s.%s", r.path, time.Now().Format("2006-01-02T15-04-05"))
	if err := os.Rename(r.path, rotated); err != nil {
		return err
	}

	fd, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	r.fd = fd

	return nil
}

func (r *RotableLogger) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fd.Close()
}

package downloaders

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marcopiovanello/m3u8-dl/server/internal"
)

// DownloaderBase holds the observable state of a task. Fields behind mutex
// are written by the worker only; the two flags may be touched by anyone.
type DownloaderBase struct {
	Id        string
	URL       string
	Filename  string
	Output    string
	CreatedAt time.Time

	mutex      sync.RWMutex
	status     internal.Status
	statusText string
	duration   float64
	percentage float64
	lastError  string
	startedAt  time.Time
	finishedAt time.Time

	// set while Start is running
	stop    context.CancelFunc
	running bool

	cancelled atomic.Bool
	completed atomic.Bool

	// serializes published snapshots, see emit
	emitMu       sync.Mutex
	terminalSent bool
}

func statusText(s internal.Status, duration, percentage float64) string {
	switch s {
	case internal.StatusProbing:
		return "Probing..."
	case internal.StatusDownloading:
		if duration > 0 {
			return fmt.Sprintf("%d%%", int(percentage))
		}
		return "Downloading..."
	}
	return s.String()
}

func (d *DownloaderBase) snapshot() internal.TaskSnapshot {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	return internal.TaskSnapshot{
		Id:              d.Id,
		Filename:        d.Filename,
		URL:             d.URL,
		OutputPath:      d.Output,
		Duration:        d.duration,
		Percentage:      d.percentage,
		Status:          d.status,
		StatusText:      d.statusText,
		IsFinished:      d.completed.Load(),
		CancelRequested: d.cancelled.Load(),
		Error:           d.lastError,
		CreatedAt:       d.CreatedAt,
		StartedAt:       d.startedAt,
		FinishedAt:      d.finishedAt,
	}
}

func (d *DownloaderBase) transition(s internal.Status) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.status = s
	d.statusText = statusText(s, d.duration, d.percentage)
}

func (d *DownloaderBase) setDuration(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}

	d.mutex.Lock()
	d.duration = seconds
	d.mutex.Unlock()
}

// arm registers the cancel func of a starting worker. It fails if a stop was
// requested before the worker got there.
func (d *DownloaderBase) arm(stop context.CancelFunc) bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.cancelled.Load() {
		return false
	}
	d.stop = stop
	return true
}

// complete moves the task to a terminal state. Only the first call counts.
func (d *DownloaderBase) complete(s internal.Status, err error) bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.completed.Load() {
		return false
	}

	d.status = s
	d.statusText = s.String()
	if s == internal.StatusDone {
		d.percentage = 100
	}
	if err != nil {
		d.lastError = err.Error()
	}
	d.finishedAt = time.Now()
	d.running = false
	d.stop = nil

	d.completed.Store(true)
	return true
}

func (d *DownloaderBase) IsCompleted() bool { return d.completed.Load() }

func (d *DownloaderBase) GetId() string       { return d.Id }
func (d *DownloaderBase) GetUrl() string      { return d.URL }
func (d *DownloaderBase) GetFilename() string { return d.Filename }

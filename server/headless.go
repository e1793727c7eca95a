package server

import (
	"context"
	"log/slog"

	"github.com/marcopiovanello/m3u8-dl/server/config"
	"github.com/marcopiovanello/m3u8-dl/server/internal"
)

// Aliases for callers outside the server tree.
type (
	Snapshot = internal.TaskSnapshot
	Status   = internal.Status
)

const (
	StatusDone      = internal.StatusDone
	StatusError     = internal.StatusError
	StatusCancelled = internal.StatusCancelled
)

// Download runs a single task without the HTTP surface. onUpdate receives every
// snapshot of the task. Cancelling ctx cancels the task; Download still waits
// for its final state.
func Download(ctx context.Context, cfg *config.Config, url, filename string, onUpdate func(internal.TaskSnapshot)) (internal.TaskSnapshot, error) {
	c, err := newCore(cfg, nil)
	if err != nil {
		return internal.TaskSnapshot{}, err
	}
	defer c.close()

	return c.download(ctx, url, filename, onUpdate)
}

func (c *core) download(ctx context.Context, url, filename string, onUpdate func(internal.TaskSnapshot)) (internal.TaskSnapshot, error) {
	updates := make(chan internal.TaskSnapshot, 64)
	done := make(chan internal.TaskSnapshot, 1)

	// the core runs a single task, no need to filter by id
	c.orch.Subscribe(func(e internal.Event) {
		if e.Task.IsFinished {
			select {
			case done <- e.Task:
			default:
			}
			return
		}
		select {
		case updates <- e.Task:
		default:
		}
	})

	if _, err := c.orch.CheckTool(); err != nil {
		return internal.TaskSnapshot{}, err
	}

	id, err := c.orch.Submit(url, filename)
	if err != nil {
		return internal.TaskSnapshot{}, err
	}

	cancelled := ctx.Done()
	for {
		select {
		case <-cancelled:
			slog.Info("interrupted, cancelling download", slog.String("id", id))
			c.orch.Cancel(id)
			cancelled = nil
		case s := <-updates:
			if onUpdate != nil {
				onUpdate(s)
			}
		case s := <-done:
			if onUpdate != nil {
				onUpdate(s)
			}
			return s, nil
		}
	}
}

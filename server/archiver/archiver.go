package archiver

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"

	"github.com/marcopiovanello/m3u8-dl/server/internal"
)

type Message = internal.TaskSnapshot

// Archiver records terminal tasks in the history table from a single
// background goroutine.
type Archiver struct {
	repo *Repository
	ch   chan Message

	closeOnce sync.Once
	done      chan struct{}
}

func New(db *sql.DB) (*Archiver, error) {
	repo := NewRepository(db)
	if err := repo.InitTable(); err != nil {
		return nil, err
	}

	a := &Archiver{
		repo: repo,
		ch:   make(chan Message, 64),
		done: make(chan struct{}),
	}

	go a.run()

	return a, nil
}

func (a *Archiver) run() {
	defer close(a.done)

	for m := range a.ch {
		slog.Info(
			"archiving finished download",
			slog.String("filename", m.Filename),
			slog.String("status", m.Status.String()),
		)
		if err := a.repo.Archive(context.Background(), m); err != nil {
			slog.Error("failed to archive download", slog.String("id", m.Id), slog.Any("err", err))
		}
	}
}

// Publish queues a terminal snapshot. Unfinished snapshots are ignored. It
// never blocks: when the writer is too far behind the snapshot is dropped.
func (a *Archiver) Publish(m Message) {
	if !m.IsFinished {
		return
	}
	select {
	case a.ch <- m:
	default:
		slog.Warn("history writer is behind, dropping entry",
			slog.String("id", m.Id),
			slog.String("filename", m.Filename),
		)
	}
}

func (a *Archiver) List(ctx context.Context, limit int) ([]Entry, error) {
	return a.repo.List(ctx, limit)
}

// Close flushes pending messages.
func (a *Archiver) Close() {
	a.closeOnce.Do(func() {
		close(a.ch)
	})
	<-a.done
}

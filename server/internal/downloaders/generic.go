package downloaders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/marcopiovanello/m3u8-dl/server/internal"
	"github.com/marcopiovanello/m3u8-dl/server/internal/ffmpeg"
)

var ErrAlreadyStarted = errors.New("download already started or completed")

const defaultGracePeriod = 5 * time.Second

type Options struct {
	Tool    string
	SaveDir string
	Prober  Prober

	// defaults to exec.CommandContext
	Command ffmpeg.CommandFunc

	// how long a terminated transfer may take to exit before it is killed
	// and its output pipe is closed
	GracePeriod time.Duration

	OnEvent func(internal.Event)
}

// GenericDownloader remuxes a single source into <SaveDir>/<Filename>.mp4.
//
// Queued -> Probing -> Downloading -> Done | Error | Cancelled
type GenericDownloader struct {
	opts Options

	logConsumer LogConsumer
	lastLine    string

	// embedded
	DownloaderBase
}

func NewGenericDownload(url, filename string, opts Options) *GenericDownloader {
	g := &GenericDownloader{
		opts:        opts,
		logConsumer: NewFFMpegLogConsumer(),
	}
	// in base
	g.Id = uuid.NewString()
	g.URL = url
	g.Filename = filename
	g.Output = filepath.Join(opts.SaveDir, filename+".mp4")
	g.CreatedAt = time.Now()
	g.status = internal.StatusQueued
	g.statusText = statusText(internal.StatusQueued, 0, 0)
	return g
}

// Start runs the whole lifecycle and returns once a terminal state is
// reached. Failures are recorded on the task; the returned error is only
// informative.
func (g *GenericDownloader) Start(ctx context.Context) error {
	if g.IsCompleted() {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !g.arm(cancel) {
		g.finish(internal.StatusCancelled, nil)
		return nil
	}

	g.transition(internal.StatusProbing)
	g.emit(internal.EventState)

	if g.opts.Prober != nil {
		g.setDuration(g.opts.Prober.Probe(ctx, g.opts.Tool, g.URL))
	}

	if err := os.MkdirAll(g.opts.SaveDir, os.ModePerm); err != nil {
		err = fmt.Errorf("creating save directory: %w", err)
		g.finish(classify(g.cancelled.Load(), err), err)
		return err
	}

	return g.transfer(ctx)
}

func (g *GenericDownloader) transfer(ctx context.Context) error {
	command := g.opts.Command
	if command == nil {
		command = exec.CommandContext
	}

	grace := g.opts.GracePeriod
	if grace <= 0 {
		grace = defaultGracePeriod
	}

	cmd := command(ctx, g.opts.Tool, ffmpeg.TransferArgs(g.URL, g.Output)...)
	ffmpeg.Configure(cmd)
	// ffmpeg forks nothing, but a wrapper script might
	cmd.Cancel = func() error { return ffmpeg.Terminate(cmd.Process) }
	cmd.WaitDelay = grace

	// ffmpeg reports on stderr, stdout stays unused
	pr, pw := io.Pipe()
	cmd.Stderr = pw

	g.mutex.Lock()
	if g.cancelled.Load() {
		g.mutex.Unlock()
		pw.Close()
		g.finish(internal.StatusCancelled, nil)
		return nil
	}
	if err := cmd.Start(); err != nil {
		g.mutex.Unlock()
		pw.Close()
		err = fmt.Errorf("starting ffmpeg: %w", err)
		g.finish(classify(g.cancelled.Load(), err), err)
		return err
	}
	g.running = true
	g.startedAt = time.Now()
	g.status = internal.StatusDownloading
	g.statusText = statusText(internal.StatusDownloading, g.duration, g.percentage)
	g.mutex.Unlock()

	slog.Info("requesting download",
		slog.String("id", g.Id),
		slog.String("url", g.URL),
		slog.String("output", g.Output),
	)
	g.emit(internal.EventState)

	logs := make(chan []byte)
	go produceLogs(pr, logs)

	detached := make(chan struct{})
	go func() {
		defer close(detached)
		consumeLogs(logs, g.logConsumer, g)
	}()

	err := cmd.Wait()
	// the outcome is decided here, whatever happens next
	cancelled := g.cancelled.Load()

	pw.Close()
	<-detached

	status := classify(cancelled, err)
	if status == internal.StatusError {
		err = g.describe(err)
	}
	g.finish(status, err)

	if status == internal.StatusError {
		return err
	}
	return nil
}

// classify maps the observed exit of the transfer process to a terminal
// status. A requested cancellation wins over the exit code.
func classify(cancelled bool, err error) internal.Status {
	switch {
	case cancelled:
		return internal.StatusCancelled
	case err != nil:
		return internal.StatusError
	}
	return internal.StatusDone
}

func (g *GenericDownloader) describe(err error) error {
	if err == nil {
		return nil
	}

	g.mutex.RLock()
	last := g.lastLine
	g.mutex.RUnlock()

	if last == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, last)
}

func (g *GenericDownloader) finish(s internal.Status, err error) {
	if !g.complete(s, err) {
		return
	}

	attrs := []any{
		slog.String("id", g.Id),
		slog.String("url", g.URL),
		slog.String("status", s.String()),
	}
	if err != nil {
		attrs = append(attrs, slog.Any("err", err))
	}
	slog.Info("download finished", attrs...)

	g.emit(internal.EventState)
}

// Stop requests cancellation. A running transfer is asked to terminate
// without waiting for it to exit. Stopping a completed task does nothing.
func (g *GenericDownloader) Stop() error {
	if g.IsCompleted() {
		return nil
	}

	g.cancelled.Store(true)

	g.mutex.Lock()
	stop := g.stop
	running := g.running
	if running {
		g.statusText = internal.StatusTextCancelling
	}
	g.mutex.Unlock()

	if stop != nil {
		stop()
	}
	if running {
		g.emit(internal.EventState)
	}

	return nil
}

// SetProgress records the elapsed media time reported by the tool.
// Without a known duration there is no percentage to show.
func (g *GenericDownloader) SetProgress(elapsed float64) {
	g.mutex.Lock()
	if g.duration <= 0 || g.status != internal.StatusDownloading || g.completed.Load() {
		g.mutex.Unlock()
		return
	}
	g.percentage = ffmpeg.Percent(elapsed, g.duration)
	if !g.cancelled.Load() {
		g.statusText = statusText(g.status, g.duration, g.percentage)
	}
	g.mutex.Unlock()

	g.emit(internal.EventProgress)
}

func (g *GenericDownloader) setLastLine(line string) {
	g.mutex.Lock()
	g.lastLine = line
	g.mutex.Unlock()
}

// emit publishes the current snapshot. Nothing is published after the
// terminal snapshot, so a late Stop cannot resurrect a finished task.
func (g *GenericDownloader) emit(kind internal.EventKind) {
	if g.opts.OnEvent == nil {
		return
	}

	g.emitMu.Lock()
	defer g.emitMu.Unlock()

	if g.terminalSent {
		return
	}

	snap := g.snapshot()
	if snap.IsFinished {
		g.terminalSent = true
		kind = internal.EventState
	}

	g.opts.OnEvent(internal.Event{Kind: kind, Task: snap})
}

func (g *GenericDownloader) Status() internal.TaskSnapshot { return g.snapshot() }

// Fail forces the task into Error unless it already finished.
func (g *GenericDownloader) Fail(err error) { g.finish(internal.StatusError, err) }

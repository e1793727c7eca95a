package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/marcopiovanello/m3u8-dl/server/config"
	"github.com/marcopiovanello/m3u8-dl/server/internal"
	"github.com/marcopiovanello/m3u8-dl/server/internal/downloaders"
	"github.com/marcopiovanello/m3u8-dl/server/internal/ffmpeg"
	"github.com/marcopiovanello/m3u8-dl/server/internal/kv"
	"github.com/marcopiovanello/m3u8-dl/server/internal/queue"
	"github.com/marcopiovanello/m3u8-dl/server/logging"
	"github.com/marcopiovanello/m3u8-dl/server/sys"
)

var (
	ErrToolNotFound   = sys.ErrToolNotFound
	ErrTaskNotFound   = kv.ErrNotFound
	ErrTaskRunning    = errors.New("task is still running")
	ErrInvalidRequest = errors.New("invalid download request")
	ErrClosed         = errors.New("orchestrator is closed")
)

type Options struct {
	Config  *config.Config
	Store   *kv.Store
	Queue   *queue.MessageQueue
	Journal *logging.Journal
	Prober  downloaders.Prober

	// defaults to sys.ResolveTool
	Resolve func(configured string) (string, error)
	// defaults to exec.CommandContext
	Command ffmpeg.CommandFunc
}

// Orchestrator owns the set of active tasks. Every submitted task runs on its
// own goroutine; the control methods never wait for a worker.
type Orchestrator struct {
	cfg     *config.Config
	store   *kv.Store
	mq      *queue.MessageQueue
	journal *logging.Journal
	prober  downloaders.Prober
	resolve func(string) (string, error)
	command ffmpeg.CommandFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func New(o Options) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())

	resolve := o.Resolve
	if resolve == nil {
		resolve = sys.ResolveTool
	}

	journal := o.Journal
	if journal == nil {
		journal = logging.NewJournal(nil)
	}

	return &Orchestrator{
		cfg:     o.Config,
		store:   o.Store,
		mq:      o.Queue,
		journal: journal,
		prober:  o.Prober,
		resolve: resolve,
		command: o.Command,
		ctx:     ctx,
		cancel:  cancel,
		timers:  make(map[string]*time.Timer),
	}
}

// CheckTool logs whether the tool can be found with the current settings.
func (o *Orchestrator) CheckTool() (string, error) {
	tool, err := o.resolve(o.cfg.Settings().ToolPath)
	if err != nil {
		o.journal.Error("WARNING: FFmpeg not found! Check Settings.")
		return "", err
	}

	o.journal.Info("FFmpeg found: %s", tool)
	return tool, nil
}

func validate(url, filename string) error {
	switch {
	case strings.TrimSpace(url) == "":
		return fmt.Errorf("%w: empty url", ErrInvalidRequest)
	case strings.TrimSpace(filename) == "":
		return fmt.Errorf("%w: empty filename", ErrInvalidRequest)
	case strings.ContainsAny(filename, `/\`) || filename == "." || filename == "..":
		return fmt.Errorf("%w: filename must not contain a path", ErrInvalidRequest)
	}
	return nil
}

// Submit registers a new task and starts it in the background. The tool is
// resolved first: when it is missing no task is created.
func (o *Orchestrator) Submit(url, filename string) (string, error) {
	url = strings.TrimSpace(url)
	filename = strings.TrimSpace(filename)

	if err := validate(url, filename); err != nil {
		return "", err
	}

	settings := o.cfg.Settings()

	tool, err := o.resolve(settings.ToolPath)
	if err != nil {
		o.journal.Error("FFmpeg not found. Cannot start %s", filename)
		return "", fmt.Errorf("%w: %w", ErrToolNotFound, err)
	}

	d := downloaders.NewGenericDownload(url, filename, downloaders.Options{
		Tool:        tool,
		SaveDir:     settings.SaveDir,
		Prober:      o.prober,
		Command:     o.command,
		GracePeriod: settings.GracePeriod,
		OnEvent:     o.onEvent,
	})

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return "", ErrClosed
	}
	o.wg.Add(1)
	o.mu.Unlock()

	o.store.Set(d)
	o.mq.Publish(internal.Event{Kind: internal.EventState, Task: d.Status()})

	slog.Info("task submitted",
		slog.String("id", d.GetId()),
		slog.String("url", url),
		slog.String("output", d.Output),
	)

	go o.work(d)

	return d.GetId(), nil
}

func (o *Orchestrator) work(d downloaders.Downloader) {
	defer o.wg.Done()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("download worker panicked", slog.String("id", d.GetId()), slog.Any("panic", r))
			if g, ok := d.(*downloaders.GenericDownloader); ok {
				g.Fail(fmt.Errorf("internal error: %v", r))
			}
			o.journal.Error("System Error: %v", r)
		}
	}()

	d.Start(o.ctx)

	s := d.Status()
	switch s.Status {
	case internal.StatusDone:
		o.journal.Info("Finished: %s", s.Filename)
		o.scheduleRemoval(s.Id)
	case internal.StatusCancelled:
		o.journal.Info("Cancelled: %s", s.Filename)
	case internal.StatusError:
		o.journal.Error("Error: %s (%s)", s.Filename, s.Error)
	}
}

func (o *Orchestrator) onEvent(e internal.Event) {
	if e.Kind == internal.EventState && e.Task.Status == internal.StatusDownloading &&
		e.Task.StatusText != internal.StatusTextCancelling {
		o.journal.Info("Started: %s", e.Task.Filename)
	}
	o.mq.Publish(e)
}

func (o *Orchestrator) scheduleRemoval(id string) {
	settings := o.cfg.Settings()
	if !settings.AutoRemove {
		return
	}

	delay := settings.AutoRemoveDelay
	if delay <= 0 {
		delay = 1500 * time.Millisecond
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}

	o.timers[id] = time.AfterFunc(delay, func() {
		o.mu.Lock()
		delete(o.timers, id)
		o.mu.Unlock()

		if err := o.Delete(id); err != nil && !errors.Is(err, ErrTaskNotFound) {
			slog.Warn("auto remove failed", slog.String("id", id), slog.Any("err", err))
		}
	})
}

// Cancel requests termination of a task. Cancelling a finished task is a
// no-op.
func (o *Orchestrator) Cancel(id string) error {
	d, err := o.store.Get(id)
	if err != nil {
		return err
	}

	slog.Info("cancelling task", slog.String("id", id))
	return d.Stop()
}

// Delete drops a finished task. A task that has not finished stays untouched
// and ErrTaskRunning is returned.
func (o *Orchestrator) Delete(id string) error {
	var snap internal.TaskSnapshot

	removed, err := o.store.DeleteIf(id, func(d downloaders.Downloader) bool {
		if !d.IsCompleted() {
			return false
		}
		snap = d.Status()
		return true
	})
	if err != nil {
		return err
	}
	if !removed {
		return ErrTaskRunning
	}

	o.mu.Lock()
	if t, ok := o.timers[id]; ok {
		t.Stop()
		delete(o.timers, id)
	}
	o.mu.Unlock()

	o.mq.Publish(internal.Event{Kind: internal.EventRemoved, Task: snap})
	slog.Info("task removed", slog.String("id", id))

	return nil
}

func (o *Orchestrator) Get(id string) (internal.TaskSnapshot, error) {
	d, err := o.store.Get(id)
	if err != nil {
		return internal.TaskSnapshot{}, err
	}
	return d.Status(), nil
}

// Tasks returns every active task in submission order.
func (o *Orchestrator) Tasks() []internal.TaskSnapshot {
	return o.store.All()
}

func (o *Orchestrator) Subscribe(fn func(internal.Event)) error {
	return o.mq.Subscribe(fn)
}

// Wait blocks until every worker started so far has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close cancels every running task and waits for the workers. Pending
// auto-removals are dropped.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		o.wg.Wait()
		return
	}
	o.closed = true
	for id, t := range o.timers {
		t.Stop()
		delete(o.timers, id)
	}
	o.mu.Unlock()

	for _, d := range o.store.Values() {
		if !d.IsCompleted() {
			d.Stop()
		}
	}

	o.wg.Wait()
	o.cancel()
}

package logging

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Entry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
	Error   bool      `json:"error"`
}

func (e Entry) String() string {
	prefix := "[>>]"
	if e.Error {
		prefix = "[!!]"
	}
	return fmt.Sprintf("%s %s %s", e.Time.Format(time.TimeOnly), prefix, e.Message)
}

// Journal is the append-only log of significant events shown to the user.
// Every entry is mirrored to slog.
type Journal struct {
	mu      sync.RWMutex
	entries []Entry
	subs    map[chan Entry]struct{}
	logger  *slog.Logger
}

func NewJournal(logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{
		subs:   make(map[chan Entry]struct{}),
		logger: logger,
	}
}

func (j *Journal) Info(format string, args ...any) {
	j.append(fmt.Sprintf(format, args...), false)
}

func (j *Journal) Error(format string, args ...any) {
	j.append(fmt.Sprintf(format, args...), true)
}

func (j *Journal) append(msg string, isError bool) {
	e := Entry{Time: time.Now(), Message: msg, Error: isError}

	if isError {
		j.logger.Error(msg, slog.String("source", "journal"))
	} else {
		j.logger.Info(msg, slog.String("source", "journal"))
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = append(j.entries, e)

	for ch := range j.subs {
		// slow readers lose entries, the journal itself never blocks
		select {
		case ch <- e:
		default:
		}
	}
}

// Entries returns a copy of everything logged so far, oldest first.
func (j *Journal) Entries() []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Subscribe streams new entries until the returned func is called.
func (j *Journal) Subscribe() (<-chan Entry, func()) {
	ch := make(chan Entry, 64)

	j.mu.Lock()
	j.subs[ch] = struct{}{}
	j.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			j.mu.Lock()
			delete(j.subs, ch)
			j.mu.Unlock()
			close(ch)
		})
	}
}

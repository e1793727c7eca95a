package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func newTestJournal(buf *bytes.Buffer) *Journal {
	var w io.Writer = io.Discard
	if buf != nil {
		w = buf
	}
	return NewJournal(slog.New(slog.NewTextHandler(w, nil)))
}

func TestJournalAppendsInOrder(t *testing.T) {
	var buf bytes.Buffer
	j := newTestJournal(&buf)

	j.Info("Started: %s", "clip")
	j.Error("Error: %s", "clip")

	got := j.Entries()
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Error || got[0].Message != "Started: clip" {
		t.Errorf("unexpected first entry %+v", got[0])
	}
	if !got[1].Error {
		t.Error("second entry should be marked as an error")
	}
	if got[0].Time.IsZero() {
		t.Error("entries must be timestamped")
	}

	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Error("error entries should reach slog at error level")
	}
}

func TestEntryString(t *testing.T) {
	ts := time.Date(2024, 1, 1, 13, 4, 5, 0, time.UTC)

	if got := (Entry{Time: ts, Message: "Ready."}).String(); got != "13:04:05 [>>] Ready." {
		t.Errorf("got %q", got)
	}
	if got := (Entry{Time: ts, Message: "boom", Error: true}).String(); got != "13:04:05 [!!] boom" {
		t.Errorf("got %q", got)
	}
}

func TestJournalSubscribe(t *testing.T) {
	j := newTestJournal(nil)

	ch, unsubscribe := j.Subscribe()
	j.Info("hello")

	select {
	case e := <-ch:
		if e.Message != "hello" {
			t.Errorf("got %q", e.Message)
		}
	case <-time.After(time.Second):
		t.Fatal("no entry received")
	}

	unsubscribe()
	unsubscribe()

	// must not block or panic once the subscriber is gone
	j.Info("after")
}

func TestEntriesHandler(t *testing.T) {
	j := newTestJournal(nil)
	j.Info("Ready.")

	r := chi.NewRouter()
	r.Route("/log", ApplyRouter(j))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/log/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var got []Entry
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Message != "Ready." {
		t.Fatalf("unexpected body %+v", got)
	}
}

package metadata

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcopiovanello/m3u8-dl/server/internal/simproc"
)

func TestHelperProcess(t *testing.T) { simproc.Main() }

func newFetcher(playlist PlaylistFunc) *DurationFetcher {
	f := NewDurationFetcher(5*time.Second, playlist)
	f.Command = simproc.Command
	return f
}

func TestProbeReadsDuration(t *testing.T) {
	got := newFetcher(nil).Probe(context.Background(), "ffmpeg", "sim://ok")
	if got != 120 {
		t.Fatalf("got %v, want 120", got)
	}
}

func TestProbeUnknownDuration(t *testing.T) {
	got := newFetcher(nil).Probe(context.Background(), "ffmpeg", "sim://noduration")
	if got != 0 {
		t.Fatalf("got %v, want 0", got)
	}
}

func TestProbePlaylistFallback(t *testing.T) {
	calls := 0
	f := newFetcher(func(ctx context.Context, url string) (float64, error) {
		calls++
		return 42, nil
	})

	if got := f.Probe(context.Background(), "ffmpeg", "sim://noduration"); got != 42 {
		t.Fatalf("got %v, want 42", got)
	}

	// the fallback is only consulted when the tool has no answer
	if got := f.Probe(context.Background(), "ffmpeg", "sim://ok"); got != 120 {
		t.Fatalf("got %v, want 120", got)
	}
	if calls != 1 {
		t.Fatalf("fallback called %d times, want 1", calls)
	}
}

func TestProbeFallbackError(t *testing.T) {
	f := newFetcher(func(ctx context.Context, url string) (float64, error) {
		return 0, errors.New("unreachable")
	})

	if got := f.Probe(context.Background(), "ffmpeg", "sim://noduration"); got != 0 {
		t.Fatalf("got %v, want 0", got)
	}
}

func TestProbeMissingTool(t *testing.T) {
	f := NewDurationFetcher(time.Second, nil)

	got := f.Probe(context.Background(), filepath.Join(t.TempDir(), "nope"), "https://example.com/a.m3u8")
	if got != 0 {
		t.Fatalf("got %v, want 0", got)
	}
}

func TestProbeTimeout(t *testing.T) {
	f := newFetcher(nil)
	f.Timeout = 200 * time.Millisecond

	start := time.Now()
	got := f.Probe(context.Background(), "ffmpeg", "sim://probehang")

	if got != 0 {
		t.Fatalf("got %v, want 0", got)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("probe took %v, timeout ignored", elapsed)
	}
}

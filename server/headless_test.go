package server

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcopiovanello/m3u8-dl/server/config"
	"github.com/marcopiovanello/m3u8-dl/server/internal"
	"github.com/marcopiovanello/m3u8-dl/server/internal/metadata"
	"github.com/marcopiovanello/m3u8-dl/server/internal/orchestrator"
	"github.com/marcopiovanello/m3u8-dl/server/internal/simproc"
	"github.com/marcopiovanello/m3u8-dl/server/sys"
)

func TestHelperProcess(t *testing.T) { simproc.Main() }

func newTestCore(t *testing.T, resolve func(string) (string, error)) (*core, *config.Config) {
	t.Helper()

	cfg := &config.Config{}
	cfg.UpdateSettings(func(d *config.DownloadsConfig) {
		d.SaveDir = t.TempDir()
		d.GracePeriod = 2 * time.Second
	})

	if resolve == nil {
		resolve = func(string) (string, error) { return "ffmpeg", nil }
	}

	c, err := newCore(cfg, nil, func(o *orchestrator.Options) {
		prober := metadata.NewDurationFetcher(5*time.Second, nil)
		prober.Command = simproc.Command

		o.Prober = prober
		o.Resolve = resolve
		o.Command = simproc.Command
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.close)

	return c, cfg
}

func TestDownloadCompletes(t *testing.T) {
	c, cfg := newTestCore(t, nil)

	var updates int
	s, err := c.download(context.Background(), "sim://ok", "clip", func(internal.TaskSnapshot) { updates++ })
	if err != nil {
		t.Fatal(err)
	}

	if s.Status != internal.StatusDone || s.Percentage != 100 {
		t.Fatalf("unexpected snapshot %+v", s)
	}
	if updates == 0 {
		t.Fatal("no updates delivered")
	}
	if _, err := os.Stat(filepath.Join(cfg.Settings().SaveDir, "clip.mp4")); err != nil {
		t.Fatalf("output missing: %v", err)
	}
}

func TestDownloadInterrupted(t *testing.T) {
	c, _ := newTestCore(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := c.download(ctx, "sim://hang", "clip", func(s internal.TaskSnapshot) {
		if s.Status == internal.StatusDownloading {
			cancel()
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Status != internal.StatusCancelled {
		t.Fatalf("expected Cancelled, got %s", s.Status)
	}
}

func TestDownloadToolMissing(t *testing.T) {
	c, _ := newTestCore(t, func(string) (string, error) { return "", sys.ErrToolNotFound })

	_, err := c.download(context.Background(), "sim://ok", "clip", nil)
	if !errors.Is(err, sys.ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

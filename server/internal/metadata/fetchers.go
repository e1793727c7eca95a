package metadata

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"time"

	"github.com/marcopiovanello/m3u8-dl/server/internal/ffmpeg"
)

// PlaylistFunc estimates a duration from the source itself when the tool
// cannot report one.
type PlaylistFunc func(ctx context.Context, url string) (float64, error)

// DurationFetcher runs the tool in inspection mode and reads the total
// duration from its diagnostic output.
type DurationFetcher struct {
	Command  ffmpeg.CommandFunc
	Timeout  time.Duration
	Playlist PlaylistFunc
}

func NewDurationFetcher(timeout time.Duration, playlist PlaylistFunc) *DurationFetcher {
	return &DurationFetcher{
		Command:  exec.CommandContext,
		Timeout:  timeout,
		Playlist: playlist,
	}
}

// Probe never fails: 0 means the duration is unknown.
func (f *DurationFetcher) Probe(ctx context.Context, tool, url string) float64 {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	command := f.Command
	if command == nil {
		command = exec.CommandContext
	}

	cmd := command(ctx, tool, ffmpeg.ProbeArgs(url)...)
	ffmpeg.Configure(cmd)
	cmd.WaitDelay = time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	slog.Info("probing duration", slog.String("url", url))

	// inspection mode always exits non-zero, only a spawn failure matters
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			slog.Warn("failed to probe duration", slog.String("url", url), slog.Any("err", err))
		}
	}

	if d, ok := ffmpeg.ParseDuration(stderr.String()); ok {
		return d
	}

	if f.Playlist != nil && ctx.Err() == nil {
		d, err := f.Playlist(ctx, url)
		if err == nil && d > 0 {
			slog.Info("duration read from playlist", slog.String("url", url), slog.Float64("duration", d))
			return d
		}
		slog.Debug("playlist fallback failed", slog.String("url", url), slog.Any("err", err))
	}

	return 0
}

package downloaders

import (
	"log/slog"
	"strings"

	"github.com/marcopiovanello/m3u8-dl/server/internal/ffmpeg"
)

type LogConsumer interface {
	GetName() string
	ParseLogEntry(entry []byte, downloader Downloader)
}

// FFMpegLogConsumer turns ffmpeg stats lines into progress updates.
type FFMpegLogConsumer struct{}

func NewFFMpegLogConsumer() LogConsumer {
	return &FFMpegLogConsumer{}
}

func (f *FFMpegLogConsumer) GetName() string { return "ffmpeg-log-consumer" }

func (f *FFMpegLogConsumer) ParseLogEntry(entry []byte, d Downloader) {
	line := strings.TrimSpace(string(entry))
	if line == "" {
		return
	}

	if elapsed, ok := ffmpeg.ParseProgress(line); ok {
		d.SetProgress(elapsed)
		return
	}

	if g, ok := d.(*GenericDownloader); ok {
		g.setLastLine(line)
	}

	slog.Debug("ffmpeg output",
		slog.String("id", shortId(d.GetId())),
		slog.String("url", d.GetUrl()),
		slog.String("output", line),
	)
}

func shortId(id string) string {
	return strings.Split(id, "-")[0]
}

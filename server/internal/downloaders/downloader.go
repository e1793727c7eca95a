package downloaders

import (
	"context"

	"github.com/marcopiovanello/m3u8-dl/server/internal"
)

// Prober reports the total duration of a source in seconds, 0 if unknown.
type Prober interface {
	Probe(ctx context.Context, tool, url string) float64
}

type Downloader interface {
	Start(ctx context.Context) error
	Stop() error
	Status() internal.TaskSnapshot

	SetProgress(elapsed float64)

	IsCompleted() bool

	GetId() string
	GetUrl() string
	GetFilename() string
}

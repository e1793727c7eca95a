package playlist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/grafov/m3u8"
)

var (
	ErrNotHTTP       = errors.New("playlist is not served over http")
	ErrNotPlaylist   = errors.New("url does not point to an m3u8 playlist")
	ErrLivePlaylist  = errors.New("live playlist has no total duration")
	ErrEmptyMaster   = errors.New("master playlist has no variants")
	ErrTooManyHops   = errors.New("too many nested playlists")
	ErrUnknownFormat = errors.New("unknown playlist type")
)

const maxHops = 3

// Inspector estimates the duration of an HLS source without ffmpeg, by summing
// the segment durations of a closed media playlist.
type Inspector struct {
	Client *http.Client
}

func NewInspector(client *http.Client) *Inspector {
	if client == nil {
		client = http.DefaultClient
	}
	return &Inspector{Client: client}
}

// Duration follows the first variant of a master playlist and returns the
// total duration in seconds of the resulting media playlist.
func (i *Inspector) Duration(ctx context.Context, rawURL string) (float64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return 0, ErrNotHTTP
	}
	// plain media files can be large, never download them here
	if !IsPlaylistURL(rawURL) {
		return 0, ErrNotPlaylist
	}

	for hop := 0; hop < maxHops; hop++ {
		p, listType, err := i.fetch(ctx, u)
		if err != nil {
			return 0, err
		}

		switch listType {
		case m3u8.MEDIA:
			return mediaDuration(p.(*m3u8.MediaPlaylist))

		case m3u8.MASTER:
			master := p.(*m3u8.MasterPlaylist)
			if len(master.Variants) == 0 || master.Variants[0] == nil {
				return 0, ErrEmptyMaster
			}

			next, err := u.Parse(master.Variants[0].URI)
			if err != nil {
				return 0, err
			}
			slog.Debug("following playlist variant", slog.String("url", next.String()))
			u = next

		default:
			return 0, ErrUnknownFormat
		}
	}

	return 0, ErrTooManyHops
}

func (i *Inspector) fetch(ctx context.Context, u *url.URL) (m3u8.Playlist, m3u8.ListType, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, err
	}

	res, err := i.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("fetching playlist: %s", res.Status)
	}

	// a playlist is small, anything bigger is not one
	return m3u8.DecodeFrom(io.LimitReader(res.Body, 8<<20), false)
}

func mediaDuration(p *m3u8.MediaPlaylist) (float64, error) {
	if !p.Closed {
		return 0, ErrLivePlaylist
	}

	var total float64
	for _, seg := range p.Segments {
		if seg == nil {
			continue
		}
		total += seg.Duration
	}

	return total, nil
}

// IsPlaylistURL is a cheap guess based on the path extension.
func IsPlaylistURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".m3u8")
}

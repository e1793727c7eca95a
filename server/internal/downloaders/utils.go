package downloaders

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
)

const maxLineSize = 1 << 20

// scanStatsLines splits on '\n' and on '\r': ffmpeg redraws its stats line
// in place with carriage returns.
func scanStatsLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// produceLogs reads r line by line until EOF and closes logs. Whatever cannot
// be scanned is drained so the writer never blocks.
func produceLogs(r io.Reader, logs chan<- []byte) {
	defer close(logs)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(scanStatsLines)

	for scanner.Scan() {
		logs <- bytes.Clone(scanner.Bytes())
	}

	if err := scanner.Err(); err != nil {
		slog.Warn("stopped parsing ffmpeg output", slog.Any("err", err))
	}

	io.Copy(io.Discard, r)
}

func consumeLogs(logs <-chan []byte, c LogConsumer, d Downloader) {
	for entry := range logs {
		c.ParseLogEntry(entry, d)
	}

	slog.Debug("detaching logs",
		slog.String("id", shortId(d.GetId())),
		slog.String("consumer", c.GetName()),
	)
}

package ffmpeg

import (
	"regexp"
	"strconv"
)

// Pre-compiled patterns for the diagnostic text ffmpeg writes on stderr.
var (
	reTimestamp = regexp.MustCompile(`^(\d{2,}):(\d{2}):(\d{2}\.\d{2})$`)

	reProgress = regexp.MustCompile(`time=(\d{2,}:\d{2}:\d{2}\.\d{2})`)

	reDuration = regexp.MustCompile(`Duration: (\d{2,}:\d{2}:\d{2}\.\d{2})`)
)

// ParseTimestamp converts HH:MM:SS.ss into seconds.
func ParseTimestamp(ts string) (float64, bool) {
	m := reTimestamp.FindStringSubmatch(ts)
	if m == nil {
		return 0, false
	}

	hours, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}

	return float64(hours)*3600 + float64(minutes)*60 + seconds, true
}

// ParseProgress extracts the elapsed media time from a stats line.
func ParseProgress(line string) (float64, bool) {
	m := reProgress.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return ParseTimestamp(m[1])
}

// ParseDuration looks for the total media duration in the output of an
// inspection run. "Duration: N/A" yields no match.
func ParseDuration(output string) (float64, bool) {
	m := reDuration.FindStringSubmatch(output)
	if m == nil {
		return 0, false
	}
	return ParseTimestamp(m[1])
}

// Percent returns elapsed/duration as a percentage clamped to [0, 100].
// An unknown duration yields 0.
func Percent(elapsed, duration float64) float64 {
	if duration <= 0 {
		return 0
	}

	p := elapsed / duration * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

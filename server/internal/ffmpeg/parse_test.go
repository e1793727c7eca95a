package ffmpeg

import (
	"math"
	"slices"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"00:01:30.50", 90.5, true},
		{"01:00:00.00", 3600, true},
		{"00:00:00.00", 0, true},
		{"100:00:00.00", 360000, true},
		{"00:1:30.50", 0, false},
		{"00:01:30", 0, false},
		{"aa:bb:cc.dd", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseTimestamp(tt.in)
		if ok != tt.ok || !almostEqual(got, tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseProgress(t *testing.T) {
	tests := []struct {
		line string
		want float64
		ok   bool
	}{
		{"frame=  120 fps=0.0 q=-1.0 size=  1024kB time=00:01:00.00 bitrate=139.8kbits/s speed=2x", 60, true},
		{"size=N/A time=00:00:05.25 bitrate=N/A", 5.25, true},
		{"time=-577014:32:22.77 bitrate=N/A", 0, false},
		{"Press [q] to stop, [?] for help", 0, false},
		{"time=00:0x:00.00", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseProgress(tt.line)
		if ok != tt.ok || !almostEqual(got, tt.want) {
			t.Errorf("ParseProgress(%q) = %v, %v; want %v, %v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseDuration(t *testing.T) {
	out := "Input #0, hls, from 'https://example.com/index.m3u8':\n" +
		"  Duration: 00:02:00.00, start: 1.400000, bitrate: 0 kb/s\n"

	got, ok := ParseDuration(out)
	if !ok || got != 120 {
		t.Fatalf("got %v, %v; want 120, true", got, ok)
	}

	if _, ok := ParseDuration("  Duration: N/A, start: 0.000000"); ok {
		t.Fatal("expected no match on N/A duration")
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		elapsed, duration, want float64
	}{
		{60, 120, 50},
		{130, 120, 100},
		{-1, 120, 0},
		{30, 0, 0},
		{120, 120, 100},
	}

	for _, tt := range tests {
		if got := Percent(tt.elapsed, tt.duration); !almostEqual(got, tt.want) {
			t.Errorf("Percent(%v, %v) = %v; want %v", tt.elapsed, tt.duration, got, tt.want)
		}
	}
}

func TestTransferArgs(t *testing.T) {
	got := TransferArgs("https://example.com/a.m3u8", "/tmp/out/clip.mp4")
	want := []string{
		"-protocol_whitelist", "file,http,https,tcp,tls,crypto",
		"-y",
		"-i", "https://example.com/a.m3u8",
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		"/tmp/out/clip.mp4",
	}

	if !slices.Equal(got, want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}

	if probe := ProbeArgs("x"); !slices.Equal(probe, []string{"-i", "x"}) {
		t.Fatalf("unexpected probe args %v", probe)
	}
}

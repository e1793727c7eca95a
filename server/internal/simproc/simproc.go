// Package simproc lets a test binary stand in for ffmpeg.
//
// A package that needs a fake tool declares
//
//	func TestHelperProcess(t *testing.T) { simproc.Main() }
//
// and passes simproc.Command wherever an ffmpeg.CommandFunc is expected. The
// test binary then re-executes itself and behaves according to the input URL:
//
//	sim://ok        progress lines, writes the output file, exit 0
//	sim://slow      same as ok, spread over ~300ms
//	sim://fail      an error line, exit 1
//	sim://hang      one progress line, then blocks until signalled
//	sim://noduration  inspection reports "Duration: N/A"
//	sim://probehang inspection blocks until signalled
package simproc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"
)

const envKey = "SIMPROC_HELPER"

// Command has the shape of exec.CommandContext.
func Command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := append([]string{"-test.run=^TestHelperProcess$", "--", name}, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = append(os.Environ(), envKey+"=1")
	return cmd
}

// Main runs the fake tool and exits. It returns immediately when the binary
// was not started through Command.
func Main() {
	if os.Getenv(envKey) != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "simproc: no command")
		os.Exit(2)
	}
	// drop "--" and the tool name
	args = args[2:]

	os.Exit(run(args))
}

func run(args []string) int {
	url := inputOf(args)

	if !slices.Contains(args, "-protocol_whitelist") {
		return probe(url)
	}

	return transfer(url, args[len(args)-1])
}

func inputOf(args []string) string {
	i := slices.Index(args, "-i")
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}

func probe(url string) int {
	fmt.Fprintf(os.Stderr, "Input #0, hls, from '%s':\n", url)

	switch {
	case strings.Contains(url, "probehang"):
		time.Sleep(time.Minute)
	case strings.Contains(url, "noduration"):
		fmt.Fprintln(os.Stderr, "  Duration: N/A, start: 0.000000, bitrate: N/A")
	default:
		fmt.Fprintln(os.Stderr, "  Duration: 00:02:00.00, start: 1.400000, bitrate: 0 kb/s")
	}

	fmt.Fprintln(os.Stderr, "At least one output file must be specified")
	return 1
}

func transfer(url, output string) int {
	stats := func(ts string) {
		fmt.Fprintf(os.Stderr, "frame=  100 fps=0.0 q=-1.0 size=    1024kB time=%s bitrate= 139.8kbits/s speed=2x\r", ts)
	}

	fmt.Fprintf(os.Stderr, "Input #0, hls, from '%s':\n", url)

	switch {
	case strings.Contains(url, "fail"):
		fmt.Fprintf(os.Stderr, "%s: Server returned 404 Not Found\n", url)
		return 1

	case strings.Contains(url, "hang"):
		stats("00:00:30.00")
		time.Sleep(time.Minute)
		return 0
	}

	pause := time.Duration(0)
	if strings.Contains(url, "slow") {
		pause = 100 * time.Millisecond
	}

	for _, ts := range []string{"00:00:30.00", "00:01:00.00", "00:01:30.00", "00:02:00.00"} {
		stats(ts)
		time.Sleep(pause)
	}
	fmt.Fprintln(os.Stderr)

	if err := os.WriteFile(output, []byte("simulated"), 0644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return 0
}

package ffmpeg

import (
	"context"
	"os/exec"
)

// Protocols the transfer process may open while following a playlist.
const ProtocolWhitelist = "file,http,https,tcp,tls,crypto"

// CommandFunc builds the command used to run the tool. It has the same shape
// as exec.CommandContext, which is the default.
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// ProbeArgs runs the tool in inspection mode: an input and nothing else.
func ProbeArgs(url string) []string {
	return []string{"-i", url}
}

// TransferArgs remuxes url into output without re-encoding.
func TransferArgs(url, output string) []string {
	args := make([]string, 0, 11)

	// input
	args = append(args, "-protocol_whitelist", ProtocolWhitelist)
	args = append(args, "-y")
	args = append(args, "-i", url)

	// stream copy, ADTS to ASC for the mp4 container
	args = append(args, "-c", "copy")
	args = append(args, "-bsf:a", "aac_adtstoasc")

	args = append(args, output)
	return args
}

package sys

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

var ErrToolNotFound = errors.New("ffmpeg executable not found")

const toolName = "ffmpeg"

func toolBinary() string {
	if runtime.GOOS == "windows" {
		return toolName + ".exe"
	}
	return toolName
}

// ResolveTool locates the ffmpeg executable. In order: the configured path if
// it points to an existing file, a binary next to the running executable, then
// a PATH lookup.
func ResolveTool(configured string) (string, error) {
	if configured != "" && isFile(configured) {
		return configured, nil
	}

	if exe, err := os.Executable(); err == nil {
		local := filepath.Join(filepath.Dir(exe), toolBinary())
		if isFile(local) {
			return local, nil
		}
	}

	if p, err := exec.LookPath(toolName); err == nil {
		return p, nil
	}

	return "", ErrToolNotFound
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

// ToolVersion returns the first line printed by `<tool> -version`.
func ToolVersion(ctx context.Context, tool string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	out, err := exec.CommandContext(ctx, tool, "-version").Output()
	if ctx.Err() != nil {
		return "", errors.New("requesting ffmpeg version took too long")
	}
	if err != nil {
		return "", err
	}

	line, _, _ := bufio.NewReader(bytes.NewReader(out)).ReadLine()
	return string(line), nil
}

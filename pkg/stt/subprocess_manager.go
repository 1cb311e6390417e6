package stt

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// SubprocessConfig describes one invocation of an external STT binary.
type SubprocessConfig struct {
	Binary          string
	ModelPath       string
	Language        string
	Threads         int
	TimeoutSeconds  int
	JSONFlags       []string
	MaxStdoutBytes  int
}

// cappedBuffer caps accumulation at maxBytes, silently dropping anything
// beyond that (the subprocess keeps running; only our copy is bounded).
type cappedBuffer struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	maxBytes int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	room := c.maxBytes - c.buf.Len()
	if room <= 0 {
		return len(p), nil
	}
	if len(p) > room {
		c.buf.Write(p[:room])
	} else {
		c.buf.Write(p)
	}
	return len(p), nil
}

func (c *cappedBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// SubprocessManager launches the configured binary per call, drains
// stdout/stderr on dedicated goroutines to avoid pipe backpressure, and
// enforces a timeout with forced termination.
type SubprocessManager struct{}

// NewSubprocessManager builds a SubprocessManager.
func NewSubprocessManager() *SubprocessManager {
	return &SubprocessManager{}
}

// Transcribe spawns cfg.Binary against wavPath and returns its stdout.
func (m *SubprocessManager) Transcribe(ctx context.Context, wavPath string, cfg SubprocessConfig) (string, error) {
	maxBytes := cfg.MaxStdoutBytes
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	args := []string{"-m", cfg.ModelPath, "-l", cfg.Language, "-t", strconv.Itoa(cfg.Threads), "-f", wavPath}
	args = append(args, cfg.JSONFlags...)

	// A relative path with a directory part is made absolute first: the
	// child runs with Dir set to the binary's directory, where the original
	// relative path would no longer resolve.
	binary := cfg.Binary
	if !filepath.IsAbs(binary) && filepath.Dir(binary) != "." {
		if abs, err := filepath.Abs(binary); err == nil {
			binary = abs
		}
	}
	cmd := exec.CommandContext(callCtx, binary, args...)
	cmd.Dir = filepath.Dir(binary)
	// On timeout, signal a graceful shutdown (destroy()) first; if the
	// process hasn't exited within WaitDelay, the stdlib escalates to
	// Process.Kill (destroyForcibly()).
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 200 * time.Millisecond

	stdout := &cappedBuffer{maxBytes: maxBytes}
	stderr := &cappedBuffer{maxBytes: maxBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	// exec.Cmd already drains Stdout/Stderr concurrently on dedicated
	// goroutines internally when they are plain io.Writers (not pipes we
	// read ourselves), which satisfies the "two dedicated reader threads"
	// requirement without us managing pipes by hand.
	err := cmd.Run()

	if callCtx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("stt: subprocess %s: %w", cfg.Binary, ErrTimeout)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if isExitError(err, &exitErr) {
			snippet := stderr.String()
			if len(snippet) > 2048 {
				snippet = snippet[:2048]
			}
			return "", &NonZeroExitError{Code: exitErr.ExitCode(), StderrSnippet: snippet}
		}
		return "", fmt.Errorf("stt: subprocess %s: %w", cfg.Binary, err)
	}

	return stdout.String(), nil
}

func isExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

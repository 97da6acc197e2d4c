// Package ollama runs prompts through a locally hosted model via the ollama
// CLI, one subprocess per call.
package ollama

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"GeoGlobe/internal/domain"
	"GeoGlobe/internal/ports"
)

// Client implements ports.ModelClient by spawning `ollama run <model>` and
// writing the prompt to its stdin. Each call is bounded by the configured
// timeout; on expiry the process is killed and domain.ErrTimeout returned.
type Client struct {
	bin     string
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

var _ ports.ModelClient = (*Client)(nil)

// New builds a client. bin defaults to "ollama" when empty.
func New(bin, model string, timeout time.Duration, logger *slog.Logger) *Client {
	if bin == "" {
		bin = "ollama"
	}
	return &Client{bin: bin, model: model, timeout: timeout, logger: logger}
}

// Run sends the prompt and returns the backend's trimmed stdout verbatim.
// Empty or whitespace-only prompts return "" without spawning the backend.
// The client performs no JSON validation.
func (c *Client) Run(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", nil
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.bin, "run", c.model)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			c.debug("backend timed out", "model", c.model, "timeout", c.timeout)
			return "", domain.ErrTimeout
		}
		diag := strings.TrimSpace(stderr.String())
		c.debug("backend failed", "model", c.model, "stderr", diag)
		return "", &domain.BackendError{Output: diag}
	}

	return strings.TrimSpace(stdout.String()), nil
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

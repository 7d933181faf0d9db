// Package code provides the sandboxed code node: statically validated
// Python source run as a child process with a clean environment and
// best-effort resource caps.
package code

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Joe-rq/agent-flow-lite/pkg/flags"
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/protocol"
	"github.com/Joe-rq/agent-flow-lite/pkg/safety"
	"github.com/Joe-rq/agent-flow-lite/pkg/template"
)

const (
	minTimeout = 1 * time.Second
	maxTimeout = 30 * time.Second

	minMemoryMB = 64
	maxMemoryMB = 512

	maxCaptureBytes = 10 << 10 // 10 KiB per stream

	interpreter = "python3"
)

var envKeyPattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

type CodeNode struct {
	logger *slog.Logger
	flags  *flags.Store
}

func NewCodeNode(logger *slog.Logger, flagStore *flags.Store) *CodeNode {
	return &CodeNode{
		logger: logger.With("module", "code_node"),
		flags:  flagStore,
	}
}

func (n *CodeNode) Execute(ctx context.Context, node *models.Node, ec *models.ExecutionContext, getInput protocol.GetInputFunc) <-chan models.Event {
	out := make(chan models.Event, 3)

	go func() {
		defer close(out)
		n.run(ctx, node, ec, getInput, out)
	}()

	return out
}

func (n *CodeNode) run(ctx context.Context, node *models.Node, ec *models.ExecutionContext, getInput protocol.GetInputFunc, out chan<- models.Event) {
	if !protocol.Emit(ctx, out, models.NewNodeStart(node.ID, node.Type)) {
		return
	}

	if n.flags == nil || !n.flags.Enabled(ctx, flags.EnableCodeNode) {
		n.fail(ctx, out, ec, node.ID, "code node is disabled by administrator")
		return
	}

	source, _ := node.Data["code"].(string)
	if strings.TrimSpace(source) == "" {
		n.fail(ctx, out, ec, node.ID, "code node requires non-empty code")
		return
	}

	if err := safety.ValidateCode(source); err != nil {
		n.fail(ctx, out, ec, node.ID, fmt.Sprintf("code rejected: %v", err))
		return
	}

	timeout := clampTimeout(node.Data["timeoutSeconds"])
	memoryMB := clampMemory(node.Data["memoryLimitMb"])

	stdout, stderr, err := n.execute(ctx, node, ec, getInput, source, timeout, memoryMB)
	if err != nil {
		detail := strings.TrimSpace(stderr)
		if detail == "" {
			detail = err.Error()
		}

		n.fail(ctx, out, ec, node.ID, fmt.Sprintf("code execution failed: %s", detail))

		return
	}

	output := strings.TrimSpace(stdout)
	ec.SetOutput(node.ID, output)

	protocol.Emit(ctx, out, models.NewNodeComplete(node.ID, output, nil))
}

func (n *CodeNode) execute(ctx context.Context, node *models.Node, ec *models.ExecutionContext, getInput protocol.GetInputFunc, source string, timeout time.Duration, memoryMB int) (string, string, error) {
	workDir, err := os.MkdirTemp("", "codenode-*")
	if err != nil {
		return "", "", fmt.Errorf("failed to create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			n.logger.Warn("failed to clean up code work dir", "dir", workDir, "error", err)
		}
	}()

	script := filepath.Join(workDir, "main.py")
	if err := os.WriteFile(script, []byte(source), 0o600); err != nil {
		return "", "", fmt.Errorf("failed to write source: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(runCtx, interpreter, script)
	cmd.Dir = workDir
	cmd.Env = buildEnv(node, ec, getInput)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", "", fmt.Errorf("failed to start interpreter: %w", err)
	}

	// Best-effort: unsupported platforms run with the wall clock only.
	if err := applyLimits(cmd.Process.Pid, memoryMB, int(maxTimeout.Seconds())); err != nil {
		n.logger.Warn("failed to apply resource limits", "error", err)
	}

	err = cmd.Wait()

	outText := truncate(stdout.Bytes())
	errText := truncate(stderr.Bytes())

	if runCtx.Err() != nil && !errors.Is(ctx.Err(), context.Canceled) {
		return outText, errText, fmt.Errorf("timed out after %s", timeout)
	}

	if err != nil {
		return outText, errText, fmt.Errorf("interpreter exited: %w", err)
	}

	return outText, errText, nil
}

func (n *CodeNode) fail(ctx context.Context, out chan<- models.Event, ec *models.ExecutionContext, nodeID, message string) {
	ec.SetOutput(nodeID, "")
	protocol.Emit(ctx, out, models.NewNodeError(nodeID, message))
}

// buildEnv assembles the clean child environment: no inherited variables,
// caller keys uppercased and filtered, plus the node input and user id.
func buildEnv(node *models.Node, ec *models.ExecutionContext, getInput protocol.GetInputFunc) []string {
	env := []string{"PYTHONIOENCODING=utf-8"}

	if extra, ok := node.Data["env"].(map[string]any); ok {
		for key, value := range extra {
			key = strings.ToUpper(strings.TrimSpace(key))
			if !envKeyPattern.MatchString(key) {
				continue
			}

			env = append(env, key+"="+template.Resolve(stringValue(value), ec))
		}
	}

	env = append(env,
		"WORKFLOW_INPUT="+template.Stringify(getInput(node.ID, ec)),
		"USER_ID="+ec.UserID,
	)

	return env
}

func truncate(raw []byte) string {
	if len(raw) > maxCaptureBytes {
		raw = raw[:maxCaptureBytes]
	}

	return string(raw)
}

func clampTimeout(value any) time.Duration {
	seconds := maxTimeout.Seconds()

	switch v := value.(type) {
	case float64:
		seconds = v
	case int:
		seconds = float64(v)
	}

	timeout := time.Duration(seconds * float64(time.Second))
	if timeout < minTimeout {
		return minTimeout
	}
	if timeout > maxTimeout {
		return maxTimeout
	}

	return timeout
}

func clampMemory(value any) int {
	memoryMB := maxMemoryMB

	switch v := value.(type) {
	case float64:
		memoryMB = int(v)
	case int:
		memoryMB = v
	}

	if memoryMB < minMemoryMB {
		return minMemoryMB
	}
	if memoryMB > maxMemoryMB {
		return maxMemoryMB
	}

	return memoryMB
}

func stringValue(value any) string {
	s, _ := value.(string)
	return s
}

// Package httprequest provides the outbound HTTP node. Requests run
// through the SSRF guard and a rebind-proof transport, never follow
// redirects, and never trust proxy environment variables.
package httprequest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
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

	maxResponseBytes = 1 << 20 // 1 MiB
)

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
}

type HTTPRequestNode struct {
	logger       *slog.Logger
	flags        *flags.Store
	allowDomains []string
}

func NewHTTPRequestNode(logger *slog.Logger, flagStore *flags.Store, allowDomains []string) *HTTPRequestNode {
	return &HTTPRequestNode{
		logger:       logger.With("module", "http_node"),
		flags:        flagStore,
		allowDomains: allowDomains,
	}
}

func (n *HTTPRequestNode) Execute(ctx context.Context, node *models.Node, ec *models.ExecutionContext, getInput protocol.GetInputFunc) <-chan models.Event {
	out := make(chan models.Event, 3)

	go func() {
		defer close(out)
		n.run(ctx, node, ec, out)
	}()

	return out
}

func (n *HTTPRequestNode) run(ctx context.Context, node *models.Node, ec *models.ExecutionContext, out chan<- models.Event) {
	if !protocol.Emit(ctx, out, models.NewNodeStart(node.ID, node.Type)) {
		return
	}

	if n.flags == nil || !n.flags.Enabled(ctx, flags.EnableHTTPNode) {
		n.fail(ctx, out, ec, node.ID, "http node is disabled by administrator")
		return
	}

	// An absent method means GET; the allowlist judges anything explicit.
	method := strings.ToUpper(strings.TrimSpace(stringValue(node.Data["method"])))
	if method == "" {
		method = http.MethodGet
	}

	if !allowedMethods[method] {
		n.fail(ctx, out, ec, node.ID, fmt.Sprintf("http method %q is not allowed", method))
		return
	}

	rawURL := template.Resolve(stringValue(node.Data["url"]), ec)

	safeURL, err := safety.EnsureURLSafe(ctx, rawURL, n.allowDomains)
	if err != nil {
		n.fail(ctx, out, ec, node.ID, fmt.Sprintf("url rejected: %v", err))
		return
	}

	body, contentType, err := buildBody(node.Data["body"])
	if err != nil {
		n.fail(ctx, out, ec, node.ID, err.Error())
		return
	}

	request, err := http.NewRequestWithContext(ctx, method, safeURL, body)
	if err != nil {
		n.fail(ctx, out, ec, node.ID, fmt.Sprintf("failed to build request: %v", err))
		return
	}

	if headers, ok := node.Data["headers"].(map[string]any); ok {
		for name, value := range headers {
			request.Header.Set(name, template.Resolve(stringValue(value), ec))
		}
	}

	if contentType != "" && request.Header.Get("Content-Type") == "" {
		request.Header.Set("Content-Type", contentType)
	}

	client := safety.NewSafeClient(clampTimeout(node.Data["timeoutSeconds"]))

	response, err := client.Do(request)
	if err != nil {
		n.fail(ctx, out, ec, node.ID, fmt.Sprintf("request failed: %v", err))
		return
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		n.fail(ctx, out, ec, node.ID, fmt.Sprintf("failed to read response: %v", err))
		return
	}

	output := string(raw)

	if path := stringValue(node.Data["responsePath"]); path != "" {
		output = extractPath(raw, path)
	}

	ec.SetOutput(node.ID, output)

	protocol.Emit(ctx, out, models.NewNodeComplete(node.ID, output, map[string]any{
		"status_code": response.StatusCode,
	}))
}

func (n *HTTPRequestNode) fail(ctx context.Context, out chan<- models.Event, ec *models.ExecutionContext, nodeID, message string) {
	ec.SetOutput(nodeID, "")
	protocol.Emit(ctx, out, models.NewNodeError(nodeID, message))
}

// buildBody serialises a mapping body as JSON and passes a string body
// through verbatim.
func buildBody(value any) (io.Reader, string, error) {
	switch v := value.(type) {
	case nil:
		return nil, "", nil
	case string:
		if v == "" {
			return nil, "", nil
		}

		return strings.NewReader(v), "", nil
	case map[string]any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}

		return bytes.NewReader(encoded), "application/json", nil
	default:
		return nil, "", fmt.Errorf("unsupported body type %T", value)
	}
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

// extractPath walks a dot-path through a JSON document; each segment is a
// mapping key or a non-negative index into a sequence. Any miss yields "".
func extractPath(raw []byte, path string) string {
	var document any
	if err := json.Unmarshal(raw, &document); err != nil {
		return ""
	}

	current := document

	for _, segment := range strings.Split(path, ".") {
		switch value := current.(type) {
		case map[string]any:
			next, ok := value[segment]
			if !ok {
				return ""
			}
			current = next

		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(value) {
				return ""
			}
			current = value[index]

		default:
			return ""
		}
	}

	return template.Stringify(current)
}

func stringValue(value any) string {
	s, _ := value.(string)
	return s
}

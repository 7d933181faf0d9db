package httprequest

import (
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/protocol"
)

// Factory creates HTTPRequestNode executors.
type Factory struct{}

func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeHTTP
}

func (f *Factory) Description() string {
	return "Performs an outbound HTTP request through the SSRF guard"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"url"},
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Target URL; supports template placeholders",
			},
			"method": map[string]any{
				"type":    "string",
				"enum":    []string{"GET", "POST", "PUT", "DELETE"},
				"default": "GET",
			},
			"headers": map[string]any{
				"type": "object",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
			"body": map[string]any{
				"description": "Mapping sent as JSON, or raw string body",
			},
			"timeoutSeconds": map[string]any{
				"type":    "number",
				"minimum": 1,
				"maximum": 30,
			},
			"responsePath": map[string]any{
				"type":        "string",
				"description": "Dot-path into a JSON response to extract as output",
			},
		},
	}
}

func (f *Factory) Create(deps protocol.Dependencies) (protocol.NodeExecutor, error) {
	return NewHTTPRequestNode(deps.Logger, deps.Flags, deps.AllowDomains), nil
}

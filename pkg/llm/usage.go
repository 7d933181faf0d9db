package llm

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// usageRecord is one line of the accounting log.
type usageRecord struct {
	Timestamp    string `json:"timestamp"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	UserID       string `json:"user_id,omitempty"`
}

// UsageLog appends one JSON record per completed call to a JSONL file.
type UsageLog struct {
	mu   sync.Mutex
	path string
}

func NewUsageLog(path string) *UsageLog {
	return &UsageLog{path: path}
}

// Record appends the accounting line for one call.
func (l *UsageLog) Record(provider, model string, usage Usage, userID string) error {
	line, err := json.Marshal(usageRecord{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Provider:     provider,
		Model:        model,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		UserID:       userID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal usage record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open usage log: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write usage record: %w", err)
	}

	return nil
}

// Package sessions implements the Session Manager (§4.K): lifecycle of
// per-session reasoning actors, each backed by an append-only JSONL
// transcript file.
package sessions

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/osa-run/osa/pkg/models"
)

// jsonlLine is the on-disk shape of one transcript line (§6 "Session
// JSONL file").
type jsonlLine struct {
	Role           models.Role            `json:"role"`
	Content        string                 `json:"content"`
	Timestamp      string                 `json:"timestamp"`
	ToolCalls      []models.ToolCall      `json:"tool_calls,omitempty"`
	ToolCallID     string                 `json:"tool_call_id,omitempty"`
	Channel        string                 `json:"channel,omitempty"`
	ThinkingBlocks []models.ThinkingBlock `json:"thinking_blocks,omitempty"`
}

// jsonlPath returns <sessionsDir>/<sessionID>.jsonl.
func jsonlPath(sessionsDir, sessionID string) string {
	return filepath.Join(sessionsDir, sessionID+".jsonl")
}

// AppendMessage appends one message to a session's JSONL file. Session
// JSONL files are append-only with one writer per session (§5
// "Shared-resource policy"); callers serialize through the owning
// session actor so this function itself does no locking.
func AppendMessage(sessionsDir, sessionID string, m models.Message) error {
	if err := os.MkdirAll(sessionsDir, 0o755); err != nil {
		return fmt.Errorf("sessions: mkdir: %w", err)
	}
	f, err := os.OpenFile(jsonlPath(sessionsDir, sessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("sessions: open jsonl: %w", err)
	}
	defer f.Close()

	line := jsonlLine{
		Role: m.Role, Content: m.Content, Timestamp: m.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		ToolCalls: m.ToolCalls, ToolCallID: m.ToolCallID, Channel: m.Channel, ThinkingBlocks: m.ThinkingBlocks,
	}
	b, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("sessions: marshal jsonl line: %w", err)
	}
	_, err = f.Write(append(b, '\n'))
	return err
}

// LoadMessages reads a session's full transcript. Unparseable lines are
// skipped, not fatal (§6).
func LoadMessages(sessionsDir, sessionID string) ([]models.Message, error) {
	f, err := os.Open(jsonlPath(sessionsDir, sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sessions: open jsonl: %w", err)
	}
	defer f.Close()

	var out []models.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		var line jsonlLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		msg := models.Message{
			Role: line.Role, Content: line.Content, ToolCalls: line.ToolCalls,
			ToolCallID: line.ToolCallID, Channel: line.Channel, ThinkingBlocks: line.ThinkingBlocks,
		}
		if ts, err := time.Parse(time.RFC3339, line.Timestamp); err == nil {
			msg.Timestamp = ts
		}
		out = append(out, msg)
	}
	return out, scanner.Err()
}

// Package models holds the wire and persistence types shared by every
// core component: sessions, messages, tool calls, signals, budget and
// treasury ledgers, and scheduler records.
package models

import (
	"encoding/json"
	"time"
)

// Role indicates the message author type.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentBlockType distinguishes text from image content within a Message.
type ContentBlockType string

const (
	ContentBlockText  ContentBlockType = "text"
	ContentBlockImage ContentBlockType = "image"
)

// ContentBlock is one structured piece of message content. Most messages
// carry a single text block; tool results that include images carry a
// text block followed by one or more image blocks.
type ContentBlock struct {
	Type      ContentBlockType `json:"type"`
	Text      string           `json:"text,omitempty"`
	Base64    string           `json:"base64,omitempty"`
	MediaType string           `json:"media_type,omitempty"`
}

// ThinkingBlock preserves an extended-thinking trace emitted by a
// provider so it can be replayed into the next request on the same
// session (§4.H "Extended-thinking").
type ThinkingBlock struct {
	Text      string `json:"text"`
	Signature string `json:"signature,omitempty"`
}

// Message is one line of a session's append-only JSONL transcript.
type Message struct {
	Role          Role            `json:"role"`
	Content       string          `json:"content"`
	Blocks        []ContentBlock  `json:"blocks,omitempty"`
	ToolCalls     []ToolCall      `json:"tool_calls,omitempty"`
	ToolCallID    string          `json:"tool_call_id,omitempty"`
	ThinkingBlocks []ThinkingBlock `json:"thinking_blocks,omitempty"`
	Channel       string          `json:"channel,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// HasToolCalls reports whether this message carries one or more tool calls.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// ToolCall is the assistant's request to execute a registered tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the outcome of executing a ToolCall.
type ToolResult struct {
	ToolCallID string     `json:"tool_call_id"`
	Content    string     `json:"content"`
	IsError    bool       `json:"is_error,omitempty"`
	Artifacts  []Artifact `json:"artifacts,omitempty"`
}

// Artifact is a file or media payload produced by a tool execution.
type Artifact struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	MimeType string `json:"mime_type"`
	Filename string `json:"filename,omitempty"`
	Data     []byte `json:"data,omitempty"`
	URL      string `json:"url,omitempty"`
}

// SessionStatus is the reasoning actor's current activity.
type SessionStatus string

const (
	SessionIdle     SessionStatus = "idle"
	SessionThinking SessionStatus = "thinking"
	SessionPlanMode SessionStatus = "plan-mode"
)

// LastRunMeta summarizes the most recently completed process_message call.
type LastRunMeta struct {
	Iterations int `json:"iterations"`
	ToolsUsed  int `json:"tools_used"`
}

// Session is the in-memory state owned by exactly one reasoning actor.
type Session struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id,omitempty"`
	Channel  string `json:"channel"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	Messages  []Message     `json:"-"`
	Iteration int           `json:"iteration"`
	Status    SessionStatus `json:"status"`
	PlanMode  bool          `json:"plan_mode"`

	Signal   *Signal      `json:"signal,omitempty"`
	LastMeta *LastRunMeta `json:"last_meta,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

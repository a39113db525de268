package models

import (
	"github.com/invopop/jsonschema"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Prompt    string `json:"prompt"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Agent     string `json:"agent"`
	Response  string `json:"response"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

func (Role) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "string",
		Enum: []any{
			RoleSystem,
			RoleUser,
			RoleAssistant,
			RoleTool,
		},
	}
}

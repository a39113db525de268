package models

import "time"

// Message is one turn of a conversation. Tool calls are kept as the raw JSON the model produced.
type Message struct {
	ID            uint      `gorm:"primaryKey;column:id" json:"-"`
	SessionID     string    `gorm:"column:session_id;size:64;index" json:"session_id"`
	Role          Role      `gorm:"column:role;size:16" json:"role"`
	Content       string    `gorm:"column:content;type:text" json:"content"`
	ToolName      string    `gorm:"column:tool_name;size:128" json:"tool_name,omitempty"`
	ToolCallsJSON []byte    `gorm:"column:tool_calls_json" json:"tool_calls,omitempty"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
}

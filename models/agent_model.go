package models

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// ProviderOllamaChat is the provider prefix of model references served by an Ollama chat endpoint.
const ProviderOllamaChat = "ollama_chat"

// ModelReference is a provider-qualified model name plus the endpoint serving it.
// Constructed without validation; a bad APIBase surfaces from BaseURL.
type ModelReference struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
	APIBase  string `json:"api_base"`
}

// String renders the provider-qualified identifier, e.g. "ollama_chat/gemma3:270m".
func (m ModelReference) String() string {
	return m.Provider + "/" + m.Name
}

// BaseURL parses APIBase. A bare "host:port" is treated as plain http.
func (m ModelReference) BaseURL() (*url.URL, error) {
	base := strings.TrimSpace(m.APIBase)
	if base == "" {
		return nil, fmt.Errorf("model %s: api base is empty", m)
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("model %s: invalid api base %q: %w", m, m.APIBase, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("model %s: api base %q has no host", m, m.APIBase)
	}
	return u, nil
}

// ToolSpec is what GET /tools returns for every tool an agent can call.
type ToolSpec struct {
	Agent       string          `json:"agent"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
}

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uslanozan/Gollama-the-Navigator/dispatcher"
	"github.com/uslanozan/Gollama-the-Navigator/models"
)

type fakeDispatcher struct {
	err      error
	sessions []string
	specs    []models.ToolSpec
}

func (f *fakeDispatcher) Handle(_ context.Context, sessionID, prompt string) (*dispatcher.Reply, error) {
	f.sessions = append(f.sessions, sessionID)
	if f.err != nil {
		return nil, f.err
	}
	return &dispatcher.Reply{Agent: "Smart Travel Assistant", Content: "echo: " + prompt}, nil
}

func (f *fakeDispatcher) ToolSpecs() []models.ToolSpec { return f.specs }

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	g := New(&fakeDispatcher{}, nil, Options{})
	rec := do(t, g.Handler(), http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestTools(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		rec := do(t, New(&fakeDispatcher{}, nil, Options{}).Handler(), http.MethodGet, "/tools", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("with tools", func(t *testing.T) {
		d := &fakeDispatcher{specs: []models.ToolSpec{{
			Agent:       "Smart Travel Assistant",
			Name:        "get_directions",
			Description: "Get directions from an origin to a destination.",
			Schema:      json.RawMessage(`{"type":"object"}`),
		}}}
		rec := do(t, New(d, nil, Options{}).Handler(), http.MethodGet, "/tools", "")

		var specs []models.ToolSpec
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &specs))
		require.Len(t, specs, 1)
		assert.Equal(t, "get_directions", specs[0].Name)
	})
}

func TestChat(t *testing.T) {
	d := &fakeDispatcher{}
	h := New(d, nil, Options{}).Handler()

	rec := do(t, h, http.MethodPost, "/chat", `{"prompt":"Paris to Berlin?","session_id":"abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "abc", resp.SessionID)
	assert.Equal(t, "Smart Travel Assistant", resp.Agent)
	assert.Equal(t, "echo: Paris to Berlin?", resp.Response)
}

func TestChat_GeneratesSessionID(t *testing.T) {
	d := &fakeDispatcher{}
	rec := do(t, New(d, nil, Options{}).Handler(), http.MethodPost, "/chat", `{"prompt":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.SessionID, 36)
	assert.Equal(t, []string{resp.SessionID}, d.sessions)
}

func TestChat_BadRequests(t *testing.T) {
	h := New(&fakeDispatcher{}, nil, Options{}).Handler()

	for _, body := range []string{`not json`, `{"prompt":"   "}`, `{}`} {
		rec := do(t, h, http.MethodPost, "/chat", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec := do(t, h, http.MethodGet, "/chat", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestChat_ErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: dispatcher.ErrNoRoutingPolicy, want: http.StatusConflict},
		{err: dispatcher.ErrNoAgents, want: http.StatusServiceUnavailable},
		{err: context.DeadlineExceeded, want: http.StatusGatewayTimeout},
		{err: errors.New("chat with ollama_chat/gemma3:270m: dial tcp 10.1.2.3:10010: connection refused"), want: http.StatusBadGateway},
	}
	for _, tt := range tests {
		h := New(&fakeDispatcher{err: tt.err}, nil, Options{}).Handler()
		rec := do(t, h, http.MethodPost, "/chat", `{"prompt":"hi"}`)
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())

		var resp models.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusText(tt.want), resp.Error)
	}
}

func TestRequestID_Propagated(t *testing.T) {
	h := New(&fakeDispatcher{}, nil, Options{}).Handler()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	h := New(&fakeDispatcher{}, nil, Options{RateLimitRPS: 0.001, RateLimitBurst: 2}).Handler()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, h, http.MethodGet, "/healthz", "").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_KeyedByHost(t *testing.T) {
	h := New(&fakeDispatcher{}, nil, Options{RateLimitRPS: 0.001, RateLimitBurst: 1}).Handler()

	codes := make([]int, 0, 4)
	for _, addr := range []string{"10.0.0.1:5000", "10.0.0.1:5001", "10.0.0.1:5002", "10.0.0.2:5000"} {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusOK}, codes)
}

func TestClientIP(t *testing.T) {
	tests := []struct{ addr, want string }{
		{"10.0.0.1:5000", "10.0.0.1"},
		{"[::1]:8080", "::1"},
		{"10.0.0.1", "10.0.0.1"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.addr
		assert.Equal(t, tt.want, clientIP(req), tt.addr)
	}
}

func TestRateLimiter_PerKey(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
}

// Package config resolves the process configuration once at start-up.
//
// Every value follows the same precedence: an explicitly set process environment
// variable wins, then the value from the .env file, then the built-in default.
// The process environment is only read, never written.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"

	"github.com/uslanozan/Gollama-the-Navigator/models"
)

const (
	DefaultEnvFile       = ".env"
	DefaultModelName     = "gemma3:270m"
	DefaultOllamaAPIBase = "localhost:10010"
	DefaultCloudLocation = "europe-west1"
	DefaultListenAddress = ":8000"
	DefaultHTTPTimeout   = 60 * time.Second
	DefaultMCPTransport  = "stdio"
	DefaultMCPCommand    = "npx"
	DefaultMCPArgs       = "-y @modelcontextprotocol/server-google-maps"
	DefaultLogLevel      = "info"
	DefaultRateLimitRPS  = 10.0
	DefaultRateBurst     = 20
	DefaultMaxSteps      = 5

	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
	discoveryTimeout   = 5 * time.Second
)

// Environment variable names.
const (
	EnvMapsAPIKey      = "GOOGLE_MAPS_API_KEY"
	EnvModelName       = "GEMMA_MODEL_NAME"
	EnvOllamaAPIBase   = "OLLAMA_API_BASE"
	EnvCloudProject    = "GOOGLE_CLOUD_PROJECT"
	EnvCloudLocation   = "GOOGLE_CLOUD_LOCATION"
	EnvListenAddress   = "GATEWAY_LISTEN_ADDR"
	EnvHTTPTimeout     = "HTTP_CLIENT_TIMEOUT_SECONDS"
	EnvDBDSN           = "DB_DSN"
	EnvMCPEnabled      = "MAPS_MCP_ENABLED"
	EnvMCPTransport    = "MAPS_MCP_TRANSPORT"
	EnvMCPCommand      = "MAPS_MCP_COMMAND"
	EnvMCPArgs         = "MAPS_MCP_ARGS"
	EnvMCPURL          = "MAPS_MCP_URL"
	EnvMCPTools        = "MAPS_MCP_TOOLS"
	EnvLogLevel        = "LOG_LEVEL"
	EnvTracingExporter = "TRACING_EXPORTER"
	EnvRateLimitRPS    = "RATE_LIMIT_RPS"
	EnvRateLimitBurst  = "RATE_LIMIT_BURST"
	EnvAgentMaxSteps   = "AGENT_MAX_STEPS"
)

// MCPConfig describes how to reach the maps MCP server.
type MCPConfig struct {
	Enabled   bool
	Transport string // "stdio" or "http"
	Command   string
	Args      []string
	URL       string
	// ToolFilter limits which server tools are exposed. Empty means all.
	ToolFilter []string
	// Env is passed to a stdio child process as KEY=VALUE pairs.
	Env []string
}

// Config is built once by Load and passed by value.
type Config struct {
	GoogleMapsAPIKey    string
	ModelName           string
	OllamaAPIBase       string
	GoogleCloudProject  string
	GoogleCloudLocation string

	ListenAddress     string
	HTTPClientTimeout time.Duration
	DBDSN             string
	MapsMCP           MCPConfig
	LogLevel          string
	TracingExporter   string
	RateLimitRPS      float64
	RateLimitBurst    int
	AgentMaxSteps     int
}

// ModelReference returns the Ollama chat model the agents talk to.
func (c Config) ModelReference() models.ModelReference {
	return models.ModelReference{
		Provider: models.ProviderOllamaChat,
		Name:     c.ModelName,
		APIBase:  c.OllamaAPIBase,
	}
}

// ProjectFinder discovers the Google Cloud project from ambient credentials.
type ProjectFinder func(ctx context.Context) (string, error)

var errNoProjectID = errors.New("default credentials carry no project id")

// GoogleProjectFinder uses Application Default Credentials.
func GoogleProjectFinder(ctx context.Context) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
	if err != nil {
		return "", err
	}
	if creds.ProjectID == "" {
		return "", errNoProjectID
	}
	return creds.ProjectID, nil
}

// Options tune Load. The zero value reads .env, the process environment and ADC.
type Options struct {
	EnvFile     string
	Lookup      func(key string) (string, bool)
	FindProject ProjectFinder
	Logger      *zap.Logger
}

// Load resolves the configuration. It never fails: unreadable .env files,
// unparsable numbers and credential discovery errors all fall back to defaults.
func Load(ctx context.Context, opts Options) Config {
	if opts.EnvFile == "" {
		opts.EnvFile = DefaultEnvFile
	}
	if opts.Lookup == nil {
		opts.Lookup = os.LookupEnv
	}
	if opts.FindProject == nil {
		opts.FindProject = GoogleProjectFinder
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger

	dotenv, err := godotenv.Read(opts.EnvFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug(".env file not found, using environment only", zap.String("path", opts.EnvFile))
		} else {
			log.Warn("failed to read .env file", zap.String("path", opts.EnvFile), zap.Error(err))
		}
		dotenv = map[string]string{}
	}

	s := source{lookup: opts.Lookup, dotenv: dotenv, log: log}

	cfg := Config{
		GoogleMapsAPIKey:    s.get(EnvMapsAPIKey, ""),
		ModelName:           s.get(EnvModelName, DefaultModelName),
		OllamaAPIBase:       s.get(EnvOllamaAPIBase, DefaultOllamaAPIBase),
		GoogleCloudProject:  s.get(EnvCloudProject, ""),
		GoogleCloudLocation: s.get(EnvCloudLocation, DefaultCloudLocation),
		ListenAddress:       s.get(EnvListenAddress, DefaultListenAddress),
		HTTPClientTimeout:   time.Duration(s.getInt(EnvHTTPTimeout, int(DefaultHTTPTimeout/time.Second))) * time.Second,
		DBDSN:               s.get(EnvDBDSN, ""),
		LogLevel:            s.get(EnvLogLevel, DefaultLogLevel),
		TracingExporter:     s.get(EnvTracingExporter, "noop"),
		RateLimitRPS:        s.getFloat(EnvRateLimitRPS, DefaultRateLimitRPS),
		RateLimitBurst:      s.getInt(EnvRateLimitBurst, DefaultRateBurst),
		AgentMaxSteps:       s.getInt(EnvAgentMaxSteps, DefaultMaxSteps),
	}

	cfg.MapsMCP = MCPConfig{
		Enabled:    s.getBool(EnvMCPEnabled, true),
		Transport:  s.get(EnvMCPTransport, DefaultMCPTransport),
		Command:    s.get(EnvMCPCommand, DefaultMCPCommand),
		Args:       strings.Fields(s.get(EnvMCPArgs, DefaultMCPArgs)),
		URL:        s.get(EnvMCPURL, ""),
		ToolFilter: splitList(s.get(EnvMCPTools, "")),
		Env:        []string{EnvMapsAPIKey + "=" + cfg.GoogleMapsAPIKey},
	}

	if cfg.GoogleCloudProject == "" {
		cfg.GoogleCloudProject = discoverProject(ctx, opts.FindProject, log)
	}

	return cfg
}

// discoverProject is best effort; any failure leaves the project unset.
func discoverProject(ctx context.Context, find ProjectFinder, log *zap.Logger) (project string) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug("google cloud project discovery panicked", zap.Any("panic", r))
			project = ""
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	id, err := find(ctx)
	if err != nil {
		log.Debug("google cloud project discovery failed", zap.Error(err))
		return ""
	}
	return id
}

type source struct {
	lookup func(string) (string, bool)
	dotenv map[string]string
	log    *zap.Logger
}

func (s source) get(key, def string) string {
	if v, ok := s.lookup(key); ok {
		return v
	}
	if v, ok := s.dotenv[key]; ok {
		return v
	}
	return def
}

func (s source) getInt(key string, def int) int {
	raw := s.get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		s.log.Warn("invalid integer, using default", zap.String("key", key), zap.String("value", raw), zap.Int("default", def))
		return def
	}
	return v
}

func (s source) getFloat(key string, def float64) float64 {
	raw := s.get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		s.log.Warn("invalid number, using default", zap.String("key", key), zap.String("value", raw), zap.Float64("default", def))
		return def
	}
	return v
}

func (s source) getBool(key string, def bool) bool {
	raw := s.get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		s.log.Warn("invalid boolean, using default", zap.String("key", key), zap.String("value", raw), zap.Bool("default", def))
		return def
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// String is safe to log: the maps API key is masked.
func (c Config) String() string {
	key := "unset"
	if c.GoogleMapsAPIKey != "" {
		key = "set"
	}
	return fmt.Sprintf("model=%s api_base=%s project=%q location=%s maps_api_key=%s",
		c.ModelReference(), c.OllamaAPIBase, c.GoogleCloudProject, c.GoogleCloudLocation, key)
}

package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const defaultPath = "config.yaml"

type Config struct {
	Log     Log     `yaml:"log"`
	Server  Server  `yaml:"server"`
	LLM     LLM     `yaml:"llm"`
	Session Session `yaml:"session"`
	Storage Storage `yaml:"storage"`
	MCP     MCP     `yaml:"mcp"`
}

type Server struct {
	// Listen address of the HTTP server
	Listen string `yaml:"listen" example:":8000" validate:"required"`
	// Maximum request body size in megabytes
	BodyLimitMB int `yaml:"body_limit_mb" example:"32" validate:"gt=0"`
	// Comma separated list of allowed CORS origins
	CorsOrigins string `yaml:"cors_origins" example:"*"`
}

type LLM struct {
	// OpenAI-compatible base url
	BaseURL string `yaml:"base_url" example:"https://api.mistral.ai/v1" validate:"required,url"`
	// API token, leave empty to run without a model
	Token string `yaml:"token" example:"sk-abc123"`
	// Model name
	Model string `yaml:"model" example:"mistral-large-latest" validate:"required"`
	// HTTP timeout of a single completion call
	Timeout time.Duration `yaml:"timeout" example:"2m" validate:"gt=0"`
}

// Configured reports whether a token is available for the model provider.
func (l LLM) Configured() bool {
	return strings.TrimSpace(l.Token) != ""
}

type Session struct {
	// Idle time after which a session is discarded
	TTL time.Duration `yaml:"ttl" example:"1h" validate:"gt=0"`
	// Maximum number of transcript messages kept per session
	MaxTranscript int `yaml:"max_transcript" example:"200" validate:"gt=1"`
	// Number of workers running asynchronous questions and exams
	Workers int `yaml:"workers" example:"4" validate:"gt=0"`
	// Size of the pending task buffer
	QueueSize int `yaml:"queue_size" example:"64" validate:"gt=0"`
}

type Storage struct {
	// Staging backend: disk or s3
	Backend string `yaml:"backend" example:"disk" validate:"oneof=disk s3"`
	// Directory for the disk backend
	Dir string `yaml:"dir" example:"/tmp/examprep" validate:"required_if=Backend disk"`
	S3  S3     `yaml:"s3"`
}

type S3 struct {
	Endpoint  string `yaml:"endpoint" example:"localhost:9000"`
	Region    string `yaml:"region" example:"us-east-1"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket" example:"examprep-uploads"`
	UseSSL    bool   `yaml:"use_ssl" example:"false"`
}

type MCP struct {
	// Expose session operations as MCP tools under /mcp
	Enabled bool `yaml:"enabled" example:"true"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

// Load reads .env, the YAML config file and environment overrides.
// A missing config file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultPath
	}

	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	var result Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, oops.Errorf("failed to read config file: %w", err)
	default:
		if err = yaml.Unmarshal(data, &result); err != nil {
			return nil, oops.Errorf("failed to parse YAML config: %w", err)
		}
	}

	applyEnv(&result)
	applyDefaults(&result)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func applyEnv(cfg *Config) {
	if v := firstEnv("MISTRAL_API_KEY", "MISTRALAI_API_KEY", "LLM_TOKEN"); v != "" {
		cfg.LLM.Token = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.Listen = v
	} else if v = os.Getenv("PORT"); v != "" {
		cfg.Server.Listen = ":" + strings.TrimPrefix(v, ":")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8000"
	}
	if cfg.Server.BodyLimitMB == 0 {
		cfg.Server.BodyLimitMB = 32
	}
	if cfg.Server.CorsOrigins == "" {
		cfg.Server.CorsOrigins = "*"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.mistral.ai/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "mistral-large-latest"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 2 * time.Minute
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = time.Hour
	}
	if cfg.Session.MaxTranscript == 0 {
		cfg.Session.MaxTranscript = 200
	}
	if cfg.Session.Workers == 0 {
		cfg.Session.Workers = 4
	}
	if cfg.Session.QueueSize == 0 {
		cfg.Session.QueueSize = 64
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "disk"
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "/tmp/examprep"
	}
	if cfg.Storage.S3.Region == "" {
		cfg.Storage.S3.Region = "us-east-1"
	}
	if cfg.Storage.S3.Bucket == "" {
		cfg.Storage.S3.Bucket = "examprep-uploads"
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

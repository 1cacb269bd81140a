package config

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3100"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	APIKey   string `envconfig:"API_KEY" required:"true"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".aiops/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"aiops/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
}

type ModelEnv struct {
	BaseURL     string  `envconfig:"MODEL_BASE_URL" default:"https://api.openai.com/v1"`
	Key         string  `envconfig:"MODEL_API_KEY"`
	MaxRetries  int     `envconfig:"MODEL_MAX_RETRIES" default:"3"`
	RetryDelay  float64 `envconfig:"MODEL_RETRY_DELAY" default:"1.0"`
	Temperature float64 `envconfig:"MODEL_TEMPERATURE" default:"0.2"`
}

type AgentEnv struct {
	MaxIterations  int    `envconfig:"AGENT_MAX_ITERATIONS" default:"50"`
	AutoApprove    bool   `envconfig:"AGENT_AUTO_APPROVE" default:"false"`
	WorkDir        string `envconfig:"AGENT_WORK_DIR" default:"."`
	ConcurrencyCap int    `envconfig:"QUEUE_CONCURRENCY" default:"5"`
	// External log analyzer subprocess; empty disables the subprocess path.
	AnalyzerCommand string  `envconfig:"ANALYZER_COMMAND"`
	AnalyzerTimeout float64 `envconfig:"ANALYZER_TIMEOUT" default:"120"`
	// Confidence below this triggers a refinement pass (0-100).
	ConfidenceThreshold float64 `envconfig:"CONFIDENCE_THRESHOLD" default:"70"`
}

type WatchEnv struct {
	// Comma-separated log files to tail; empty disables the watcher.
	LogPaths     []string `envconfig:"WATCH_LOG_PATHS"`
	DedupeWindow float64  `envconfig:"WATCH_DEDUPE_WINDOW" default:"60"`
}

type PushEnv struct {
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	Subscriber      string `envconfig:"PUSH_SUBSCRIBER" default:"mailto:ops@example.com"`
}

type Env struct {
	BaseEnv
	StorageEnv
	ModelEnv
	AgentEnv
	WatchEnv
	PushEnv
}

const namespace = "AIOPS"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

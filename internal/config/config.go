package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Retrieval pipeline
	ChunkSize           int     `envconfig:"CHUNK_SIZE" default:"800"`
	ChunkOverlap        int     `envconfig:"CHUNK_OVERLAP" default:"200"`
	TopK                int     `envconfig:"TOP_K" default:"5"`
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.7"`
	MaxContextLength    int     `envconfig:"MAX_CONTEXT_LENGTH" default:"2000"`

	// Embeddings (OpenAI)
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// Generation model
	LLMProvider    string  `envconfig:"LLM_PROVIDER" default:"openai"`
	LLMModel       string  `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	LLMBaseURL     string  `envconfig:"LLM_BASE_URL" default:"http://localhost:11434"`
	LLMTemperature float64 `envconfig:"LLM_TEMPERATURE" default:"0.3"`
	LLMMaxTokens   int     `envconfig:"LLM_MAX_TOKENS" default:"512"`
	LLMTimeoutSecs int     `envconfig:"LLM_TIMEOUT_SECS" default:"120"`

	// Ticketing (ServiceNow)
	ServiceNowURL      string `envconfig:"SERVICENOW_URL"`
	ServiceNowUsername string `envconfig:"SERVICENOW_USERNAME"`
	ServiceNowPassword string `envconfig:"SERVICENOW_PASSWORD"`

	// Ticket defaults
	DefaultAssignmentGroup string `envconfig:"DEFAULT_ASSIGNMENT_GROUP" default:"IT Support"`
	DefaultCategory        string `envconfig:"DEFAULT_CATEGORY" default:"Incident"`
	DefaultUrgency         int    `envconfig:"DEFAULT_URGENCY" default:"3"`
	DefaultImpact          int    `envconfig:"DEFAULT_IMPACT" default:"3"`

	// Notifications (Microsoft Teams webhook)
	TeamsWebhookURL string `envconfig:"TEAMS_WEBHOOK_URL"`
	TeamsEnabled    bool   `envconfig:"TEAMS_ENABLED" default:"false"`

	// Intake validation
	AllowedSenders string `envconfig:"ALLOWED_SENDERS"`

	// Knowledge source (Confluence)
	ConfluenceURL      string `envconfig:"CONFLUENCE_URL"`
	ConfluenceUsername string `envconfig:"CONFLUENCE_USERNAME"`
	ConfluenceAPIToken string `envconfig:"CONFLUENCE_API_TOKEN"`
	ConfluenceSpaces   string `envconfig:"CONFLUENCE_SPACES"`
	ConfluenceLabels   string `envconfig:"CONFLUENCE_LABELS"`

	// Raw email archive (S3-compatible storage, optional)
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"ragincident-mail"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Incident queue
	QueueWorkers int `envconfig:"QUEUE_WORKERS" default:"4"`
	QueueSize    int `envconfig:"QUEUE_SIZE" default:"64"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("RAGINC", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasServiceNow() bool {
	return c.ServiceNowURL != ""
}

func (c *Config) HasConfluence() bool {
	return c.ConfluenceURL != ""
}

// AllowedSendersList returns the comma-separated allowed sender addresses
// as a lowercased slice.
func (c *Config) AllowedSendersList() []string {
	return splitCSV(strings.ToLower(c.AllowedSenders))
}

// ConfluenceSpacesList returns the configured Confluence space keys.
func (c *Config) ConfluenceSpacesList() []string {
	return splitCSV(c.ConfluenceSpaces)
}

// ConfluenceLabelsList returns the configured Confluence labels.
func (c *Config) ConfluenceLabelsList() []string {
	return splitCSV(c.ConfluenceLabels)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

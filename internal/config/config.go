package config

import (
	"fmt"
	"reflect"

	"github.com/caarlos0/env/v11"
)

// Supported values for EnvVars.DBDriver.
const (
	DBDriverMemory   = "memory"
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

// Supported values for EnvVars.RecipeTextProvider.
const (
	TextProviderGemini    = "gemini"
	TextProviderAnthropic = "anthropic"
)

// Config holds the application configuration.
type Config struct {
	EnvVars EnvVars    `json:"env"`
	Prompts *PromptSet `json:"-"`
}

// EnvVars holds environment variables required by the application.
// Fields tagged `optional:"true"` are skipped by CheckConfigEnvFields.
// Fields tagged `warn:"true"` are reported as warnings instead of errors,
// so the process can start and fail later at the point of use.
type EnvVars struct {
	Port string `env:"PORT" envDefault:"8080"`

	// Realtime voice upstream
	OpenAIAPIKey  string `env:"OPENAI_API_KEY" warn:"true"`
	RealtimeURL   string `env:"REALTIME_URL" envDefault:"wss://api.openai.com/v1/realtime"`
	RealtimeModel string `env:"REALTIME_MODEL" envDefault:"gpt-4o-realtime-preview"`
	RealtimeVoice string `env:"REALTIME_VOICE" envDefault:"alloy"`

	// Recipe acquisition
	GoogleAIAPIKey     string `env:"GOOGLE_AI_API" warn:"true"`
	GeminiModel        string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	RecipeTextProvider string `env:"RECIPE_TEXT_PROVIDER" envDefault:"gemini"`
	AnthropicAPIKey    string `env:"ANTHROPIC_API_KEY" optional:"true"`
	VideoDir           string `env:"VIDEO_DIR" envDefault:"./videos"`

	// Session store
	DBDriver    string `env:"DB_DRIVER" envDefault:"memory"`
	DatabaseUrl string `env:"DATABASE_URL" optional:"true"`

	// Recipe archive
	AWSRegion          string `env:"AWS_REGION" optional:"true"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" optional:"true"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" optional:"true"`
	S3Bucket           string `env:"S3_BUCKET" optional:"true"`

	// HTTP surface
	SessionSigningKey string   `env:"SESSION_SIGNING_KEY" warn:"true"`
	IDHeader          string   `env:"ID_HEADER" optional:"true"`
	AllowedOrigins    []string `env:"ALLOWED_ORIGINS" envSeparator:"," optional:"true"`
	RateLimitRPS      int      `env:"RATE_LIMIT_RPS" envDefault:"2"`
	PromptsPath       string   `env:"PROMPTS_PATH" envDefault:"configs/prompts.yaml"`
}

// LoadConfig parses environment variables into the Config struct.
func LoadConfig() (*Config, error) {
	var config Config
	if err := env.Parse(&config.EnvVars); err != nil {
		return nil, err
	}
	return &config, nil
}

// CheckConfigEnvFields validates that all required EnvVars fields are set
// and that the selected drivers have what they need. It returns the names
// of unset `warn:"true"` fields so the caller can log them.
func (c *Config) CheckConfigEnvFields() (warnings []string, err error) {
	warnings, err = checkFieldsRecursive(reflect.ValueOf(c.EnvVars))
	if err != nil {
		return warnings, err
	}

	switch c.EnvVars.DBDriver {
	case DBDriverMemory:
	case DBDriverPostgres, DBDriverSQLite:
		if c.EnvVars.DatabaseUrl == "" {
			return warnings, fmt.Errorf("$DatabaseUrl must be set when DB_DRIVER=%s", c.EnvVars.DBDriver)
		}
	default:
		return warnings, fmt.Errorf("unsupported DB_DRIVER %q", c.EnvVars.DBDriver)
	}

	switch c.EnvVars.RecipeTextProvider {
	case TextProviderGemini:
	case TextProviderAnthropic:
		if c.EnvVars.AnthropicAPIKey == "" {
			return warnings, fmt.Errorf("$AnthropicAPIKey must be set when RECIPE_TEXT_PROVIDER=anthropic")
		}
	default:
		return warnings, fmt.Errorf("unsupported RECIPE_TEXT_PROVIDER %q", c.EnvVars.RecipeTextProvider)
	}

	if c.EnvVars.S3Bucket != "" && c.EnvVars.AWSRegion == "" {
		return warnings, fmt.Errorf("$AWSRegion must be set when S3_BUCKET is set")
	}

	return warnings, nil
}

func checkFieldsRecursive(v reflect.Value) ([]string, error) {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	var warnings []string
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := v.Type().Field(i)
		if fieldType.Tag.Get("optional") == "true" {
			continue
		}
		if field.IsZero() {
			if fieldType.Tag.Get("warn") == "true" {
				warnings = append(warnings, fieldType.Name)
				continue
			}
			return warnings, fmt.Errorf("$%s must be set", fieldType.Name)
		}
		if field.Kind() == reflect.Struct {
			nested, err := checkFieldsRecursive(field)
			warnings = append(warnings, nested...)
			if err != nil {
				return warnings, err
			}
		}
	}
	return warnings, nil
}

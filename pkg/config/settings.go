package config

import (
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig represents configuration for the persistent store
type DatabaseConfig struct {
	Type  string `yaml:"type"  json:"type"` // "sqlite" or "postgres"
	Path  string `yaml:"path"  json:"path"`
	DSN   string `yaml:"dsn"   json:"dsn"`
	Debug bool   `yaml:"debug" json:"debug"`
}

// OllamaConfig represents configuration for the inference server
type OllamaConfig struct {
	BaseURL        string        `yaml:"baseUrl"        json:"baseUrl"`
	RequestTimeout time.Duration `yaml:"requestTimeout" json:"requestTimeout"`
	ModelsTimeout  time.Duration `yaml:"modelsTimeout"  json:"modelsTimeout"`
	ModelsCacheTTL time.Duration `yaml:"modelsCacheTTL" json:"modelsCacheTTL"`
}

// TranscribeConfig represents configuration for the speech-to-text backends
type TranscribeConfig struct {
	PrimaryURL   string        `yaml:"primaryUrl"   json:"primaryUrl"`
	SecondaryURL string        `yaml:"secondaryUrl" json:"secondaryUrl"`
	Timeout      time.Duration `yaml:"timeout"      json:"timeout"`
}

// GetDatabaseConfig returns store configuration from viper
func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Type:  viper.GetString("DB_TYPE"),
		Path:  viper.GetString("DB_PATH"),
		DSN:   viper.GetString("DB_DSN"),
		Debug: viper.GetBool("DEBUG"),
	}
}

// GetOllamaConfig returns inference configuration from viper
func GetOllamaConfig() OllamaConfig {
	return OllamaConfig{
		BaseURL:        viper.GetString("OLLAMA_URL"),
		RequestTimeout: viper.GetDuration("OLLAMA_TIMEOUT"),
		ModelsTimeout:  viper.GetDuration("MODELS_TIMEOUT"),
		ModelsCacheTTL: viper.GetDuration("MODELS_CACHE_TTL"),
	}
}

// httpTimeoutMargin is the headroom the API timeout keeps over one completion
const httpTimeoutMargin = 30 * time.Second

// GetHTTPRequestTimeout returns the API request timeout, raised so a send
// waiting for its reply is never cut before the completion times out
func GetHTTPRequestTimeout() time.Duration {
	timeout := viper.GetDuration("HTTP_REQUEST_TIMEOUT")
	if floor := viper.GetDuration("OLLAMA_TIMEOUT") + httpTimeoutMargin; timeout < floor {
		return floor
	}
	return timeout
}

// GetTranscribeConfig returns transcription configuration from viper
func GetTranscribeConfig() TranscribeConfig {
	return TranscribeConfig{
		PrimaryURL:   viper.GetString("TRANSCRIBE_PRIMARY_URL"),
		SecondaryURL: viper.GetString("TRANSCRIBE_SECONDARY_URL"),
		Timeout:      viper.GetDuration("TRANSCRIBE_TIMEOUT"),
	}
}

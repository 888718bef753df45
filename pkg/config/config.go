package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Build information. Populated at build-time.
var (
	Name      string = "ollama-chat"
	Version   string = "1.1.0"
	Branch    string
	Commit    string
	BuildUser string
	GoVersion = runtime.Version()
)

const (
	// EnvPrefix is a prefix to all ENV variables used in this app
	EnvPrefix = "OLLAMA_CHAT"
	// APIPrefixV1 URL prefix in API version 1
	APIPrefixV1 = "/api/v1"

	// ##### GENERAL VARIABLES
	// Debug is a flag used to display debug messages
	Debug = false
	// DebugCORS is a flag used to display CORS debug messages
	DebugCORS = false
	// DefaultHost default host the local API binds to
	DefaultHost = "127.0.0.1"
	// DefaultPort default port the local API is served on
	DefaultPort = "8765"
	// DefaultCorsHosts default cors hosts for a local front-end
	DefaultCorsHosts = "http://localhost:3000 http://127.0.0.1:3000"
	// DefaultServiceSecret protects the local API when set
	DefaultServiceSecret = ""
	// DefaultHTTPRequestTimeout bounds one API request, including a waiting send
	DefaultHTTPRequestTimeout = "150s"

	// ##### DATABASE VARIABLES

	// DefaultDBType selects the gorm dialect (sqlite or postgres)
	DefaultDBType = "sqlite"
	// DefaultDBPath is the sqlite database file
	DefaultDBPath = "ollama_chat.db"

	// ##### INFERENCE VARIABLES

	// DefaultOllamaURL is the inference server base URL
	DefaultOllamaURL = "http://localhost:11434"
	// DefaultOllamaTimeout bounds one chat completion
	DefaultOllamaTimeout = "120s"
	// DefaultModelsTimeout bounds model discovery
	DefaultModelsTimeout = "10s"
	// DefaultModelsCacheTTL is how long discovered models are reused
	DefaultModelsCacheTTL = "1m"

	// ##### TRANSCRIPTION VARIABLES

	// DefaultTranscribeTimeout bounds one transcription attempt
	DefaultTranscribeTimeout = "30s"
)

func bindEnvVariable(name string, fallback interface{}) {
	if fallback != "" {
		viper.SetDefault(name, fallback)
	}
	err := viper.BindEnv(name)
	if err != nil {
		// logging is not configured yet
		fmt.Printf("Error binding Env Variable: %v", err)
	}
}

// LoadDotEnv reads a .env file from the working directory if there is one.
// Variables already present in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// SetupEnv configures app to read ENV variables
func SetupEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	// General
	bindEnvVariable("DEBUG", Debug)
	bindEnvVariable("DEBUG_CORS", DebugCORS)
	bindEnvVariable("HOST", DefaultHost)
	bindEnvVariable("PORT", DefaultPort)
	bindEnvVariable("CORS_HOSTS", DefaultCorsHosts)
	bindEnvVariable("HTTP_MAX_PARALLEL_REQUESTS", 8)
	bindEnvVariable("HTTP_REQUEST_TIMEOUT", DefaultHTTPRequestTimeout)
	bindEnvVariable("SERVICE_SECRET", DefaultServiceSecret)
	// Database
	bindEnvVariable("DB_TYPE", DefaultDBType)
	bindEnvVariable("DB_PATH", DefaultDBPath)
	bindEnvVariable("DB_DSN", "")
	// Inference
	bindEnvVariable("OLLAMA_URL", DefaultOllamaURL)
	bindEnvVariable("OLLAMA_TIMEOUT", DefaultOllamaTimeout)
	bindEnvVariable("MODELS_TIMEOUT", DefaultModelsTimeout)
	bindEnvVariable("MODELS_CACHE_TTL", DefaultModelsCacheTTL)
	// Transcription
	bindEnvVariable("TRANSCRIBE_PRIMARY_URL", "")
	bindEnvVariable("TRANSCRIBE_SECONDARY_URL", "")
	bindEnvVariable("TRANSCRIBE_TIMEOUT", DefaultTranscribeTimeout)
}

// CorsConfig stores default configuration for CORS middleware
func CorsConfig(corsHosts []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   corsHosts,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
		Debug:            viper.GetBool("DEBUG_CORS"),
	}
}

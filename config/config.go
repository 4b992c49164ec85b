package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"tripai/internal/types"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	LLM struct {
		BaseURL              string        `mapstructure:"baseURL"`
		Model                string        `mapstructure:"model"`
		APIKeyEnv            string        `mapstructure:"apiKeyEnv"`
		APIKey               string        `mapstructure:"-"`
		Temperature          float32       `mapstructure:"temperature"`
		RetryTemperature     float32       `mapstructure:"retryTemperature"`
		MaxTokens            int           `mapstructure:"maxTokens"`
		TopP                 float32       `mapstructure:"topP"`
		MaxUniquenessRetries int           `mapstructure:"maxUniquenessRetries"`
		CacheTTL             time.Duration `mapstructure:"cacheTTL"`
	} `mapstructure:"llm"`
	FactCheck struct {
		Enabled      bool          `mapstructure:"enabled"`
		NominatimURL string        `mapstructure:"nominatimURL"`
		WikipediaURL string        `mapstructure:"wikipediaURL"`
		UserAgent    string        `mapstructure:"userAgent"`
		MinInterval  time.Duration `mapstructure:"minInterval"`
		CacheTTL     time.Duration `mapstructure:"cacheTTL"`
		RadiusKm     float64       `mapstructure:"radiusKm"`
	} `mapstructure:"factCheck"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}

	// The credential never lives in config files. Its absence is fatal
	// before any listener or outbound call is attempted.
	if config.LLM.APIKeyEnv == "" {
		config.LLM.APIKeyEnv = "GROQ_API_KEY"
	}
	config.LLM.APIKey = os.Getenv(config.LLM.APIKeyEnv)
	if config.LLM.APIKey == "" {
		return Config{}, fmt.Errorf("%s not set: %w", config.LLM.APIKeyEnv, types.ErrMissingCredential)
	}

	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

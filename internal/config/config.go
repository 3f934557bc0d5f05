// Package config loads idverify settings from idverify.yaml, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"idverify/internal/extract"
	"idverify/internal/ocr"
)

const envPrefix = "IDVERIFY"

// Config is the root configuration.
type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	OCR     ocr.Config     `mapstructure:"ocr"`
	Extract extract.Config `mapstructure:"extract"`
	Session SessionConfig  `mapstructure:"session"`
	Log     LogConfig      `mapstructure:"log"`
	Debug   bool           `mapstructure:"debug"`
}

type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// BodyLimit caps uploaded documents, in bytes.
	BodyLimit int64 `mapstructure:"body_limit"`
}

type SessionConfig struct {
	// TTL is how long a session may stay idle before it is closed.
	TTL time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// Load reads the configuration. configFile overrides the search for
// idverify.yaml when set.
func Load(configFile string) (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("idverify")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/idverify")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// the unprefixed names the Google SDKs document
	_ = v.BindEnv("ocr.credentials_file", envPrefix+"_OCR_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS")
	_ = v.BindEnv("ocr.gemini_api_key", envPrefix+"_OCR_GEMINI_API_KEY", "GEMINI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Info().Str("file", v.ConfigFileUsed()).Msg("Config file loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() error {
	for _, location := range []string{".env", ".env.local"} {
		if _, err := os.Stat(location); err != nil {
			continue
		}
		if err := godotenv.Load(location); err != nil {
			return fmt.Errorf("error loading .env file from %s: %w", location, err)
		}
		log.Info().Str("file", location).Msg(".env file loaded")
		return nil
	}
	return errors.New("no .env file found")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.body_limit", 10<<20)

	v.SetDefault("ocr.provider", string(ocr.ProviderTesseract))
	v.SetDefault("ocr.languages", []string{"eng", "hin"})
	v.SetDefault("ocr.language_hints", []string{"en", "hi"})
	v.SetDefault("ocr.credentials_file", "")
	v.SetDefault("ocr.gemini_api_key", "")
	v.SetDefault("ocr.gemini_model", "gemini-2.0-flash-lite")
	v.SetDefault("ocr.timeout", "60s")
	v.SetDefault("ocr.temp_dir", "")

	def := extract.DefaultConfig()
	v.SetDefault("extract.name_labels", def.NameLabels)
	v.SetDefault("extract.dob_labels", def.DOBLabels)
	v.SetDefault("extract.address_labels", def.AddressLabels)
	v.SetDefault("extract.boilerplate", def.Boilerplate)
	v.SetDefault("extract.name_order", string(def.NameOrder))

	v.SetDefault("session.ttl", "15m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("debug", false)
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	switch c.OCR.Provider {
	case ocr.ProviderTesseract, ocr.ProviderVision, ocr.ProviderGemini:
	default:
		return fmt.Errorf("ocr provider must be one of tesseract, vision, gemini; got %q", c.OCR.Provider)
	}
	if c.OCR.Timeout <= 0 {
		return errors.New("ocr timeout must be positive")
	}
	switch c.Extract.NameOrder {
	case extract.NameOrderOverride, extract.NameOrderLabeledFirst:
	default:
		return fmt.Errorf("extract name_order must be %q or %q", extract.NameOrderOverride, extract.NameOrderLabeledFirst)
	}
	if c.Session.TTL < 0 {
		return errors.New("session ttl cannot be negative")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json; got %q", c.Log.Format)
	}
	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Address == "" {
		return errors.New("server address cannot be empty")
	}
	if s.ReadTimeout <= 0 {
		return errors.New("read_timeout must be positive")
	}
	if s.WriteTimeout <= 0 {
		return errors.New("write_timeout must be positive")
	}
	if s.BodyLimit <= 0 {
		return errors.New("body_limit must be positive")
	}
	return nil
}

package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr           string
		Environment    string
		AllowedOrigins []string
	}
	Database struct {
		Path string
	}
	Auth struct {
		TokenTTL   time.Duration
		BcryptCost int
		RateLimit  string
	}
	TTS struct {
		BaseURL   string
		APIKey    string
		JWTSecret string
		Timeout   time.Duration
	}
	Usage struct {
		MonthlyCharacterLimit int64
		MonthlyAPILimit       int64
		Enforce               bool
	}
	Storage struct {
		Bucket     string
		KeyPrefix  string
		Region     string
		Endpoint   string
		PresignTTL time.Duration
	}
	AWS struct {
		Profile string
	}
	Log struct {
		Level  string
		Format string
	}
}

// Production reports whether cookies and headers should use their strict settings.
func (c Config) Production() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv(".env")

	v := viper.New()
	v.SetEnvPrefix("VOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	return decode(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowedorigins", []string{"http://localhost:3000"})
	v.SetDefault("database.path", "data/808voice.db")
	v.SetDefault("auth.tokenttl", "720h")
	v.SetDefault("auth.bcryptcost", 12)
	v.SetDefault("auth.ratelimit", "10-M")
	v.SetDefault("tts.baseurl", "http://localhost:8000")
	v.SetDefault("tts.apikey", "default-api-key-for-development")
	v.SetDefault("tts.jwtsecret", "")
	v.SetDefault("tts.timeout", "120s")
	v.SetDefault("usage.monthlycharacterlimit", 100000)
	v.SetDefault("usage.monthlyapilimit", 2000)
	v.SetDefault("usage.enforce", false)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "808-voice")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.presignttl", "1h")
	v.SetDefault("aws.profile", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.TTS.BaseURL) == "" {
		return Config{}, fmt.Errorf("tts base url is required")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("auth token ttl must be positive")
	}
	return cfg, nil
}

func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}

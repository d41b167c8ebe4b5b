package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Cache     CacheConfig     `yaml:"cache" toml:"cache"`
	Timeline  TimelineConfig  `yaml:"timeline" toml:"timeline"`
	Providers ProvidersConfig `yaml:"providers" toml:"providers"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

type ServerConfig struct {
	Host         string        `yaml:"host" toml:"host"`
	Port         int           `yaml:"port" toml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" toml:"write_timeout"`
	MaxUploadMB  int64         `yaml:"max_upload_mb" toml:"max_upload_mb"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

type StorageConfig struct {
	// Backend is "local" or "s3".
	Backend  string   `yaml:"backend" toml:"backend"`
	LocalDir string   `yaml:"local_dir" toml:"local_dir"`
	S3       S3Config `yaml:"s3" toml:"s3"`
}

type S3Config struct {
	Bucket       string `yaml:"bucket" toml:"bucket"`
	Prefix       string `yaml:"prefix" toml:"prefix"`
	Region       string `yaml:"region" toml:"region"`
	Profile      string `yaml:"profile" toml:"profile"`
	UsePathStyle bool   `yaml:"use_path_style" toml:"use_path_style"`
}

type CacheConfig struct {
	BlobCapacity       int           `yaml:"blob_capacity" toml:"blob_capacity"`
	BlobMaxSize        int64         `yaml:"blob_max_size" toml:"blob_max_size"` // bytes
	TranscriptCapacity int           `yaml:"transcript_capacity" toml:"transcript_capacity"`
	RedisAddr          string        `yaml:"redis_addr" toml:"redis_addr"`
	RedisPassword      string        `yaml:"redis_password" toml:"redis_password"`
	RedisDB            int           `yaml:"redis_db" toml:"redis_db"`
	RedisTTL           time.Duration `yaml:"redis_ttl" toml:"redis_ttl"`
}

type TimelineConfig struct {
	ImageDuration       float64 `yaml:"image_duration" toml:"image_duration"`               // seconds
	ImportImageDuration float64 `yaml:"import_image_duration" toml:"import_image_duration"` // seconds
	MaxWordsPerLine     int     `yaml:"max_words_per_line" toml:"max_words_per_line"`
}

type ProvidersConfig struct {
	OpenAIKey     string        `yaml:"openai_api_key" toml:"openai_api_key"`
	OpenAIBaseURL string        `yaml:"openai_base_url" toml:"openai_base_url"`
	ChatModel     string        `yaml:"chat_model" toml:"chat_model"`
	PexelsKey     string        `yaml:"pexels_api_key" toml:"pexels_api_key"`
	UnsplashKey   string        `yaml:"unsplash_api_key" toml:"unsplash_api_key"`
	PixabayKey    string        `yaml:"pixabay_api_key" toml:"pixabay_api_key"`
	Timeout       time.Duration `yaml:"timeout" toml:"timeout"`
}

type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
	// Pretty is "true", "false" or "auto" (console output when stdout is a terminal).
	Pretty string `yaml:"pretty" toml:"pretty"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         6540,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0,
			MaxUploadMB:  2048,
		},
		Database: DatabaseConfig{
			Path: "data/clipforge.db",
		},
		Storage: StorageConfig{
			Backend:  "local",
			LocalDir: "data/blobs",
		},
		Cache: CacheConfig{
			BlobCapacity:       256,
			BlobMaxSize:        256 * 1024 * 1024, // 256 MB
			TranscriptCapacity: 128,
			RedisTTL:           7 * 24 * time.Hour,
		},
		Timeline: TimelineConfig{
			ImageDuration:       3,
			ImportImageDuration: 30,
			MaxWordsPerLine:     3,
		},
		Providers: ProvidersConfig{
			OpenAIBaseURL: "https://api.openai.com/v1",
			ChatModel:     "gpt-4o",
			Timeout:       60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: "auto",
		},
	}
}

// Load reads the config file at path over the defaults, then applies
// credentials from a .env file next to it and from the environment.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decode(path, data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
		// .env is optional
		_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))
	} else {
		_ = godotenv.Load()
	}

	cfg.applyEnv()
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, cfg)
	default:
		return yaml.Unmarshal(data, cfg)
	}
}

func (c *Config) applyEnv() {
	for env, dst := range map[string]*string{
		"OPENAI_API_KEY":       &c.Providers.OpenAIKey,
		"PEXELS_API_KEY":       &c.Providers.PexelsKey,
		"UNSPLASH_API_KEY":     &c.Providers.UnsplashKey,
		"PIXABAY_API_KEY":      &c.Providers.PixabayKey,
		"CLIPFORGE_S3_BUCKET":  &c.Storage.S3.Bucket,
		"CLIPFORGE_REDIS_ADDR": &c.Cache.RedisAddr,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}
}

var ErrInvalidConfig = errors.New("invalid config")

func (c *Config) Validate() error {
	var problems []string
	if key := c.Providers.OpenAIKey; key != "" && !strings.HasPrefix(key, "sk-") {
		problems = append(problems, `openai_api_key must start with "sk-"`)
	}
	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalDir == "" {
			problems = append(problems, "storage.local_dir is required for the local backend")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			problems = append(problems, "storage.s3.bucket is required for the s3 backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.Timeline.ImageDuration <= 0 {
		problems = append(problems, "timeline.image_duration must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// MaskKey hides all but the first few and last four characters of a secret.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	prefix := 3
	if strings.HasPrefix(key, "sk-proj-") {
		prefix = 7
	}
	if len(key) <= prefix+4 {
		return strings.Repeat("*", len(key))
	}
	return key[:prefix] + "..." + key[len(key)-4:]
}

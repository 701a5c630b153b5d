package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/dcloud-assistant/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".config/dca"
	envFile    = ".env"
)

type Config struct {
	Controller Controller
	Infra      Infra
	Registry   Registry
	Secrets    Secrets
	LLM        LLM
	Backend    Backend
	Sessions   Sessions
	Log        Log
	Server     Server
}

type Controller struct {
	URL   string
	Token string
}

type Infra struct {
	User     string
	Password string
	TokenTTL time.Duration
}

type Registry struct {
	SubcloudsFile string
}

type Secrets struct {
	Dir string
}

type LLM struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	Temperature    float64
	Timeout        time.Duration
}

type Backend struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
}

type Sessions struct {
	Capacity int
	Cooldown time.Duration
}

type Log struct {
	Level  string
	Format string
	File   string
}

type Server struct {
	Listen string
}

type Options struct {
	// ConfigFile overrides the $HOME/.config/dca/config.toml lookup.
	ConfigFile string
	// EnvFile defaults to .env in the working directory.
	EnvFile string
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"controller.url":               "OAM_IP",
	"controller.token":             "TOKEN",
	"infra.user":                   "WR_USER",
	"infra.password":               "WR_PASSWORD",
	"infra.token_ttl":              "DCA_INFRA_TOKEN_TTL",
	"registry.subclouds_file":      "DCA_SUBCLOUDS_FILE",
	"secrets.dir":                  "DCA_SECRETS_DIR",
	"llm.api_key":                  "OPENAI_API_KEY",
	"llm.base_url":                 "DCA_LLM_BASE_URL",
	"llm.model":                    "DCA_LLM_MODEL",
	"llm.embedding_model":          "DCA_EMBEDDING_MODEL",
	"llm.temperature":              "DCA_LLM_TEMPERATURE",
	"llm.timeout":                  "DCA_LLM_TIMEOUT",
	"backend.timeout":              "DCA_BACKEND_TIMEOUT",
	"backend.insecure_skip_verify": "DCA_INSECURE_SKIP_VERIFY",
	"sessions.capacity":            "DCA_SESSION_CAPACITY",
	"sessions.cooldown":            "DCA_SESSION_COOLDOWN",
	"log.level":                    "DCA_LOG_LEVEL",
	"log.format":                   "DCA_LOG_FORMAT",
	"log.file":                     "DCA_LOG_FILE",
	"server.listen":                "DCA_LISTEN",
}

var requiredKeys = []string{
	"controller.url",
	"controller.token",
	"infra.user",
	"infra.password",
	"llm.api_key",
}

func setDefaults(v *viper.Viper, homeDir string) {
	v.SetDefault("infra.token_ttl", "0s")
	v.SetDefault("registry.subclouds_file", "subclouds.json")
	v.SetDefault("secrets.dir", filepath.Join(homeDir, configDir, "secrets"))
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.embedding_model", "text-embedding-3-small")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.timeout", "120s")
	v.SetDefault("backend.timeout", "30s")
	v.SetDefault("backend.insecure_skip_verify", true)
	v.SetDefault("sessions.capacity", 20)
	v.SetDefault("sessions.cooldown", "600s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.file", "")
	v.SetDefault("server.listen", "127.0.0.1:8080")
}

// Load reads .env, the optional TOML file and the environment, in increasing
// precedence. Missing required values are a domain.ErrConfig.
func Load(opts Options) (Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return Config{}, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType(configType)
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(filepath.Join(homeDir, configDir))
	}
	setDefaults(v, homeDir)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var missing []string
	for _, key := range requiredKeys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, fmt.Sprintf("%s (%s)", key, envBindings[key]))
		}
	}
	if len(missing) > 0 {
		return Config{}, domain.ConfigError("missing required settings: %s", strings.Join(missing, ", "))
	}

	var durationErrs []error
	duration := func(key string) time.Duration {
		d, err := parseDuration(v.GetString(key))
		if err != nil {
			durationErrs = append(durationErrs, domain.ConfigError("%s: %v", key, err))
		}
		return d
	}

	cfg := Config{
		Controller: Controller{
			URL:   v.GetString("controller.url"),
			Token: v.GetString("controller.token"),
		},
		Infra: Infra{
			User:     v.GetString("infra.user"),
			Password: v.GetString("infra.password"),
			TokenTTL: duration("infra.token_ttl"),
		},
		Registry: Registry{SubcloudsFile: v.GetString("registry.subclouds_file")},
		Secrets:  Secrets{Dir: v.GetString("secrets.dir")},
		LLM: LLM{
			APIKey:         v.GetString("llm.api_key"),
			BaseURL:        v.GetString("llm.base_url"),
			Model:          v.GetString("llm.model"),
			EmbeddingModel: v.GetString("llm.embedding_model"),
			Temperature:    v.GetFloat64("llm.temperature"),
			Timeout:        duration("llm.timeout"),
		},
		Backend: Backend{
			Timeout:            duration("backend.timeout"),
			InsecureSkipVerify: v.GetBool("backend.insecure_skip_verify"),
		},
		Sessions: Sessions{
			Capacity: v.GetInt("sessions.capacity"),
			Cooldown: duration("sessions.cooldown"),
		},
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   v.GetString("log.file"),
		},
		Server: Server{Listen: v.GetString("server.listen")},
	}

	if err := errors.Join(append(durationErrs, cfg.validate())...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// parseDuration accepts Go duration strings; a bare integer is a number of seconds.
func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return time.ParseDuration(raw)
}

func (c Config) validate() error {
	var errs []error
	if c.LLM.Timeout <= 0 {
		errs = append(errs, domain.ConfigError("llm.timeout must be positive"))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, domain.ConfigError("backend.timeout must be positive"))
	}
	if c.Sessions.Capacity <= 0 {
		errs = append(errs, domain.ConfigError("sessions.capacity must be positive"))
	}
	if c.Sessions.Cooldown < 0 {
		errs = append(errs, domain.ConfigError("sessions.cooldown must not be negative"))
	}
	if c.Infra.TokenTTL < 0 {
		errs = append(errs, domain.ConfigError("infra.token_ttl must not be negative"))
	}
	return errors.Join(errs...)
}

func loadEnvFile(path string) error {
	if path == "" {
		path = envFile
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Package config resolves run settings from flags, environment variables, an
// optional .env file and an optional pdftran.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/valpere/pdftran/internal/chunker"
	"github.com/valpere/pdftran/internal/orchestrator"
)

const (
	EnvPrefix      = "PDFTRAN"
	DefaultLogFile = "translation_progress.log"
	DefaultLang    = "Persian"
	DefaultService = "gemini"
)

var services = []string{"gemini", "openrouter", "ollama", "google"}

type Config struct {
	Input         string        `mapstructure:"input"`
	Mode          string        `mapstructure:"mode"`
	Action        string        `mapstructure:"action"`
	Lang          string        `mapstructure:"lang"`
	Model         string        `mapstructure:"model"`
	Service       string        `mapstructure:"service"`
	Key           string        `mapstructure:"key"`
	WorkDir       string        `mapstructure:"workdir"`
	Marker        string        `mapstructure:"marker"`
	LogFile       string        `mapstructure:"log_file"`
	DB            string        `mapstructure:"db"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	PollTimeout   time.Duration `mapstructure:"poll_timeout"`
	Timeout       time.Duration `mapstructure:"timeout"`
	OpenRouterKey string        `mapstructure:"openrouter_key"`
	OllamaURL     string        `mapstructure:"ollama_url"`
	Credentials   string        `mapstructure:"credentials"`
	Project       string        `mapstructure:"project"`
}

// SetDefaults registers every key so that environment variables are picked
// up by Unmarshal even when no flag or file sets them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input", "")
	v.SetDefault("mode", string(chunker.ModeBookmark))
	v.SetDefault("action", string(orchestrator.ActionAll))
	v.SetDefault("lang", DefaultLang)
	v.SetDefault("model", "")
	v.SetDefault("service", DefaultService)
	v.SetDefault("key", "")
	v.SetDefault("workdir", ".")
	v.SetDefault("marker", chunker.DefaultMarker)
	v.SetDefault("log_file", DefaultLogFile)
	v.SetDefault("db", "")
	v.SetDefault("poll_interval", 2*time.Second)
	v.SetDefault("poll_timeout", 10*time.Minute)
	v.SetDefault("timeout", time.Duration(0))
	v.SetDefault("openrouter_key", "")
	v.SetDefault("ollama_url", "http://localhost:11434")
	v.SetDefault("credentials", "")
	v.SetDefault("project", "")
}

// Setup prepares v: defaults, PDFTRAN_* environment, GEMINI_API_KEY and
// OPENROUTER_API_KEY fallbacks, then cfgFile or pdftran.yaml from the
// working directory or $HOME/.pdftran. A missing config file is not an
// error.
func Setup(v *viper.Viper, cfgFile string) error {
	// .env is optional.
	_ = godotenv.Load()

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("key", EnvPrefix+"_KEY", "GEMINI_API_KEY"); err != nil {
		return err
	}
	if err := v.BindEnv("openrouter_key", EnvPrefix+"_OPENROUTER_KEY", "OPENROUTER_API_KEY"); err != nil {
		return err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("pdftran")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".pdftran"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// BindFlags binds every flag of fs whose name matches a config key, with
// dashes standing for underscores (--log-file → log_file).
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if !isKey(key) {
			return
		}
		if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	return bindErr
}

func isKey(key string) bool {
	switch key {
	case "input", "mode", "action", "lang", "model", "service", "key", "workdir",
		"marker", "log_file", "db", "poll_interval", "poll_timeout", "timeout",
		"openrouter_key", "ollama_url", "credentials", "project":
		return true
	}
	return false
}

func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Service = strings.ToLower(strings.TrimSpace(cfg.Service))
	return cfg, nil
}

// Validate checks the settings a pipeline run depends on. The API key is
// only required when the translate stage runs.
func (c Config) Validate() error {
	if c.Input == "" {
		return errors.New("input is required")
	}
	if _, err := chunker.ParseMode(c.Mode); err != nil {
		return err
	}
	action, err := orchestrator.ParseAction(c.Action)
	if err != nil {
		return err
	}
	if !isService(c.Service) {
		return fmt.Errorf("unknown service %q (want %s)", c.Service, strings.Join(services, ", "))
	}
	if c.PollInterval <= 0 {
		return errors.New("poll_interval must be positive")
	}

	if !action.Includes(orchestrator.ActionTranslate) {
		return nil
	}
	if strings.TrimSpace(c.Lang) == "" {
		return errors.New("lang is required for translation")
	}
	switch c.Service {
	case "gemini":
		if c.Key == "" {
			return errors.New("API key is required: set --key, PDFTRAN_KEY or GEMINI_API_KEY")
		}
	case "openrouter":
		if c.OpenRouterKey == "" && c.Key == "" {
			return errors.New("OpenRouter API key is required: set --openrouter-key or OPENROUTER_API_KEY")
		}
	case "google":
		// Cloud Translation takes language codes, not names.
		if _, err := language.Parse(c.Lang); err != nil {
			return fmt.Errorf("google needs a BCP 47 language code such as fa, got %q: %w", c.Lang, err)
		}
	}
	return nil
}

func isService(name string) bool {
	for _, s := range services {
		if s == name {
			return true
		}
	}
	return false
}

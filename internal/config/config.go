package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const DefaultConfigFile = "config.yaml"

type BotConfig struct {
	TelegramToken  string        `yaml:"telegram_bot_token"`
	APIBaseURL     string        `yaml:"api_base_url"`
	DatabaseURL    string        `yaml:"database_url"`
	ToastDuration  time.Duration `yaml:"toast_duration"`
	ConsoleTail    int           `yaml:"console_tail"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`
	BotDebug       bool          `yaml:"bot_debug"`
	LogLevel       string        `yaml:"log_level"`
}

var instance *BotConfig
var once sync.Once

func defaults() *BotConfig {
	return &BotConfig{
		APIBaseURL:     "http://localhost:8000/api",
		DatabaseURL:    "commute.db",
		ToastDuration:  3 * time.Second,
		ConsoleTail:    20,
		RequestTimeout: 10 * time.Second,
		ConfirmTimeout: 2 * time.Minute,
		LogLevel:       "info",
	}
}

// GetBotConfig загружает конфиг один раз на процесс. Без токена бот не
// запустится, поэтому ошибка здесь фатальна.
func GetBotConfig() *BotConfig {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			logrus.Warnf("error loading env variables: %s", err.Error())
		}

		cfg, err := Load(getEnv("CONFIG_FILE", DefaultConfigFile))
		if err != nil {
			logrus.Fatalf("could not load config: %s", err.Error())
		}

		if cfg.TelegramToken == "" {
			logrus.Fatal("could not get bot token")
		}

		instance = cfg
	})

	return instance
}

// Load читает yaml файл (если он есть) и накладывает поверх переменные
// окружения. Отсутствующий файл не ошибка.
func Load(path string) (*BotConfig, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("чтение %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("разбор %s: %w", path, err)
			}
		}
	}

	cfg.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", cfg.TelegramToken)
	cfg.APIBaseURL = getEnv("API_BASE_URL", cfg.APIBaseURL)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.ToastDuration = getEnvAsDuration("TOAST_DURATION", cfg.ToastDuration)
	cfg.ConsoleTail = int(getEnvAsInt("CONSOLE_TAIL", int64(cfg.ConsoleTail)))
	cfg.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.ConfirmTimeout = getEnvAsDuration("CONFIRM_TIMEOUT", cfg.ConfirmTimeout)
	cfg.BotDebug = getEnvAsBool("BOT_DEBUG", cfg.BotDebug)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	if cfg.APIBaseURL == "" {
		return nil, errors.New("API_BASE_URL не задан")
	}
	if cfg.ConsoleTail <= 0 {
		return nil, fmt.Errorf("CONSOLE_TAIL должен быть больше нуля: %d", cfg.ConsoleTail)
	}
	if cfg.ToastDuration <= 0 {
		return nil, fmt.Errorf("TOAST_DURATION должен быть больше нуля: %s", cfg.ToastDuration)
	}

	return cfg, nil
}

// ApplyLogLevel выставляет уровень логов logrus из LOG_LEVEL.
func (c *BotConfig) ApplyLogLevel() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.Warnf("unknown log level %q, using info", c.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int64) int64 {
	valStr := getEnv(name, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return int64(val)
	}

	return defaultVal
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(name, "")
	if val, err := time.ParseDuration(valStr); err == nil {
		return val
	}

	return defaultVal
}

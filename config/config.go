package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SwitchBackendFile     = "file"
	SwitchBackendPostgres = "postgres"
)

type Config struct {
	DB       DBConfig
	Telegram TelegramConfig
	OneBot   OneBotConfig
	Bot      BotConfig
	HTTP     HTTPConfig
	LogLevel string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type TelegramConfig struct {
	Token string // empty disables the Telegram transport
}

type OneBotConfig struct {
	URL            string // forward websocket, e.g. ws://127.0.0.1:3001; empty disables
	AccessToken    string
	ReconnectDelay time.Duration
}

type BotConfig struct {
	PluginName    string
	ToggleKeyword string
	DataDir       string
	OwnerIDs      []string // always authorized, regardless of group role
	SwitchBackend string
}

type HTTPConfig struct {
	Addr string // empty disables /health, /metrics and /menu
}

// MenuFile is where the menu document lives inside the data directory.
func (c BotConfig) MenuFile() string {
	return filepath.Join(c.DataDir, "menu.json")
}

// SwitchFile is the per-group feature flag document used by the file backend.
func (c BotConfig) SwitchFile() string {
	return filepath.Join(c.DataDir, "switch.json")
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	delay, err := time.ParseDuration(getEnv("ONEBOT_RECONNECT_DELAY", "5s"))
	if err != nil {
		delay = 5 * time.Second
	}

	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "eatwhat"),
		},
		Telegram: TelegramConfig{
			Token: getEnv("TOKEN", ""),
		},
		OneBot: OneBotConfig{
			URL:            getEnv("ONEBOT_WS_URL", ""),
			AccessToken:    getEnv("ONEBOT_ACCESS_TOKEN", ""),
			ReconnectDelay: delay,
		},
		Bot: BotConfig{
			PluginName:    getEnv("PLUGIN_NAME", "EatWhat"),
			ToggleKeyword: getEnv("TOGGLE_KEYWORD", "eatwhat"),
			DataDir:       getEnv("DATA_DIR", filepath.Join("data", "eatwhat")),
			OwnerIDs:      splitList(getEnv("OWNER_IDS", "")),
			SwitchBackend: strings.ToLower(getEnv("SWITCH_BACKEND", SwitchBackendFile)),
		},
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_ADDR", ""),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Host bridge
	HostWSURL    string // push feed the host writes panel events to
	HostBaseURL  string // commands are POSTed to {HostBaseURL}/{command}
	ResourceName string

	// Outbound commands
	CommandRatePerSec int
	CommandTimeout    time.Duration

	// Panel behaviour
	RefreshInterval time.Duration
	PanelConfigPath string

	// Inbound journal
	JournalEnabled bool
	JournalPath    string

	// cmd/host_mock
	MockHostPort int

	// Telemetry
	LogLevel string
}

func Load() *Config {
	_ = godotenv.Load()

	resource := envStr("RESOURCE_NAME", "ns-market")

	return &Config{
		HostWSURL:    envStr("HOST_WS_URL", "ws://localhost:9300/ws"),
		HostBaseURL:  strings.TrimRight(envStr("HOST_BASE_URL", "https://"+resource), "/"),
		ResourceName: resource,

		CommandRatePerSec: envInt("COMMAND_RATE_PER_SEC", 10),
		CommandTimeout:    time.Duration(envInt("COMMAND_TIMEOUT_MS", 5000)) * time.Millisecond,

		// The panel asks the host to re-send listings and buy orders on this
		// cadence while one of those tabs is open.
		RefreshInterval: time.Duration(envInt("REFRESH_INTERVAL_MS", 5000)) * time.Millisecond,
		PanelConfigPath: envStr("PANEL_CONFIG_PATH", "internal/config/panel.yaml"),

		JournalEnabled: envBool("JOURNAL_ENABLED", false),
		JournalPath:    envStr("JOURNAL_PATH", "data/inbound_journal.db"),

		MockHostPort: envInt("MOCK_HOST_PORT", 9300),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

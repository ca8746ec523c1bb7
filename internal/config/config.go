package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the service.
type Config struct {
	AppName     string
	Environment string
	User        UserConfig
	HTTP        HTTPConfig
	Data        DataConfig
	Scan        ScanConfig
	Feeds       FeedsConfig
	Reminders   ReminderConfig
	Context     ContextConfig
	Logger      LoggerConfig
}

// UserConfig identifies the person whose action items are tracked.
type UserConfig struct {
	Name string
	// SelfAddress is the user's own mailbox; mail sent by it is skipped.
	SelfAddress string
	// TrustedDomain marks internal senders eligible for rule-based extraction.
	TrustedDomain string
	// NotesBotSender is the meeting-notes bot whose mail goes straight to the
	// ingest queue.
	NotesBotSender string
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DataConfig locates everything the service persists. All paths derive from
// Dir unless overridden individually.
type DataConfig struct {
	Dir           string
	TasksFile     string
	ProcessedFile string
	QueueDir      string
	TriggerFile   string
	AliveFile     string
	ScanLogFile   string
}

type ScanConfig struct {
	Interval       time.Duration
	ScannerTimeout time.Duration
	StartDelay     time.Duration
	LedgerCap      int
}

type FeedsConfig struct {
	GoogleCredentials string
	GoogleToken       string
	SlackToken        string
	SlackUserID       string
	GongKey           string
	GongSecret        string
	GongBaseURL       string
}

// ReminderConfig holds cron expressions (with seconds) for the two digests.
type ReminderConfig struct {
	MorningSpec   string
	AfternoonSpec string
	DueThresholds []int
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	name := getString("USER_NAME", "Justin Miller")
	dataDir := getString("DATA_DIR", "./data")

	cfg := &Config{
		AppName:     getString("APP_NAME", "taskscan"),
		Environment: getString("APP_ENV", "development"),
		User: UserConfig{
			Name:           name,
			SelfAddress:    getString("SELF_ADDRESS", ""),
			TrustedDomain:  getString("TRUSTED_DOMAIN", "pactum.com"),
			NotesBotSender: getString("NOTES_BOT_SENDER", "gemini-notes@google.com"),
		},
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "127.0.0.1"),
			Port:         getString("SERVER_PORT", "3000"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Data: DataConfig{
			Dir:           dataDir,
			TasksFile:     getString("TASKS_FILE", filepath.Join(dataDir, "tasks.json")),
			ProcessedFile: getString("PROCESSED_FILE", filepath.Join(dataDir, "processed.json")),
			QueueDir:      getString("INGEST_QUEUE_DIR", filepath.Join(dataDir, ".ingest-queue")),
			TriggerFile:   getString("SCAN_TRIGGER_FILE", filepath.Join(dataDir, ".scan-trigger")),
			AliveFile:     getString("COMPANION_ALIVE_FILE", filepath.Join(dataDir, ".scan-companion-alive")),
			ScanLogFile:   getString("SCANLOG_FILE", filepath.Join(dataDir, "scanlog.db")),
		},
		Scan: ScanConfig{
			Interval:       time.Duration(getInt("SCAN_INTERVAL_MINUTES", 5)) * time.Minute,
			ScannerTimeout: getDuration("SCANNER_TIMEOUT", 90*time.Second),
			StartDelay:     getDuration("SCAN_START_DELAY", 10*time.Second),
			LedgerCap:      getInt("PROCESSED_CAP", 10000),
		},
		Feeds: FeedsConfig{
			GoogleCredentials: getString("GOOGLE_CREDENTIALS", ""),
			GoogleToken:       getString("GOOGLE_TOKEN", ""),
			SlackToken:        getString("SLACK_USER_TOKEN", ""),
			SlackUserID:       getString("SLACK_USER_ID", ""),
			GongKey:           getString("GONG_API_KEY", ""),
			GongSecret:        getString("GONG_API_SECRET", ""),
			GongBaseURL:       getString("GONG_BASE_URL", "https://us-11498.api.gong.io"),
		},
		Reminders: ReminderConfig{
			MorningSpec:   getString("REMINDER_MORNING_CRON", "0 0 9 * * *"),
			AfternoonSpec: getString("REMINDER_AFTERNOON_CRON", "0 0 15 * * *"),
			DueThresholds: []int{10, 5, 3, 1},
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}

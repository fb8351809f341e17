package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Gmail     GmailConfig     `mapstructure:"gmail"`
	Calendar  CalendarConfig  `mapstructure:"calendar"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Log       LogConfig       `mapstructure:"log"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
	// OwnerChatID receives proactive deadline alerts. Zero disables them.
	OwnerChatID      int64         `mapstructure:"owner_chat_id"`
	ReminderInterval time.Duration `mapstructure:"reminder_interval"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
	// TasksFile persists the in-memory store. Empty keeps tasks in memory only.
	TasksFile string `mapstructure:"tasks_file"`
}

type OpenAIConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	Model          string  `mapstructure:"model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
}

type MemoryConfig struct {
	Path           string  `mapstructure:"path"`
	MinRelevance   float64 `mapstructure:"min_relevance"`
	ContextResults int     `mapstructure:"context_results"`
}

type GmailConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	TokenFile       string `mapstructure:"token_file"`
	BaseURL         string `mapstructure:"base_url"`
	MaxResults      int    `mapstructure:"max_results"`
}

type CalendarConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	TokenFile       string `mapstructure:"token_file"`
	BaseURL         string `mapstructure:"base_url"`
}

type FetcherConfig struct {
	ReaderURL string        `mapstructure:"reader_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxChars  int           `mapstructure:"max_chars"`
}

type AssistantConfig struct {
	HistoryTurns  int           `mapstructure:"history_turns"`
	PromptHistory int           `mapstructure:"prompt_history"`
	TurnChars     int           `mapstructure:"turn_chars"`
	MemoryChars   int           `mapstructure:"memory_chars"`
	ToolChars     int           `mapstructure:"tool_chars"`
	ToolTimeout   time.Duration `mapstructure:"tool_timeout"`
	Timezone      string        `mapstructure:"timezone"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return DatabaseConfig{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.reminder_interval", time.Minute)

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", true)
	v.SetDefault("database.tasks_file", "todos.json")

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.max_tokens", 2048)
	v.SetDefault("openai.temperature", 0.7)

	v.SetDefault("memory.path", "memory.db")
	v.SetDefault("memory.min_relevance", 1.0)
	v.SetDefault("memory.context_results", 3)

	v.SetDefault("gmail.max_results", 3)

	v.SetDefault("fetcher.reader_url", "https://r.jina.ai/")
	v.SetDefault("fetcher.timeout", 15*time.Second)
	v.SetDefault("fetcher.max_chars", 20000)

	v.SetDefault("assistant.history_turns", 8)
	v.SetDefault("assistant.prompt_history", 6)
	v.SetDefault("assistant.turn_chars", 300)
	v.SetDefault("assistant.memory_chars", 4000)
	v.SetDefault("assistant.tool_chars", 24000)
	v.SetDefault("assistant.tool_timeout", 45*time.Second)

	v.SetDefault("log.level", "info")
}

// LoadConfig reads path when it exists. Defaults and the environment are
// enough to run without a file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !missing(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		dbConfig.TasksFile = config.Database.TasksFile
		config.Database = dbConfig
	}

	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	return &config, nil
}

func missing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

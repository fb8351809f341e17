package assistant

import "time"

// Config bounds what goes into a prompt.
type Config struct {
	HistoryTurns  int           `mapstructure:"history_turns"`
	PromptHistory int           `mapstructure:"prompt_history"`
	TurnChars     int           `mapstructure:"turn_chars"`
	MemoryChars   int           `mapstructure:"memory_chars"`
	ToolChars     int           `mapstructure:"tool_chars"`
	MemoryResults int           `mapstructure:"memory_results"`
	ToolTimeout   time.Duration `mapstructure:"tool_timeout"`
	Timezone      string        `mapstructure:"timezone"`
}

func DefaultConfig() Config {
	return Config{
		HistoryTurns:  8,
		PromptHistory: 6,
		TurnChars:     300,
		MemoryChars:   4000,
		ToolChars:     24000,
		MemoryResults: 3,
		ToolTimeout:   45 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HistoryTurns <= 0 {
		c.HistoryTurns = d.HistoryTurns
	}
	if c.PromptHistory <= 0 {
		c.PromptHistory = d.PromptHistory
	}
	if c.TurnChars <= 0 {
		c.TurnChars = d.TurnChars
	}
	if c.MemoryResults <= 0 {
		c.MemoryResults = d.MemoryResults
	}
	return c
}

// Location resolves Timezone, falling back to the local zone.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

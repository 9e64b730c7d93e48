package config

import (
	"fmt"
	"strings"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// DefaultExitWords are the farewell words that end a conversation.
const DefaultExitWords = "goodbye,bye,cya,exit,stop,later"

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		LLM: LLMConfig{
			Model:       "anthropic/claude-3-haiku",
			MaxTokens:   150,
			Temperature: 0.7,
		},
		Conversation: ConversationConfig{
			StartDistance:  10,
			MaxDistance:    40,
			TickIntervalMs: 1000,
			ExitWords:      DefaultExitWords,
			Workers:        4,
		},
		Memory: MemoryConfig{
			Store:        "sqlite",
			MaxSummaries: 5,
		},
		Gateway: GatewayConfig{
			Port: 18632,
			Bind: "loopback",
			Auth: GatewayAuth{
				Mode: "token",
			},
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}

// ExitWordList parses the comma-separated exit words, lowercased and
// trimmed. An empty or all-blank list falls back to "goodbye" so a session
// can always be ended by voice.
func (c ConversationConfig) ExitWordList() []string {
	var words []string
	for _, w := range strings.Split(c.ExitWords, ",") {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return []string{"goodbye"}
	}
	return words
}

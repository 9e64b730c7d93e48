package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.LLM.MaxTokens < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "llm.maxTokens",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.LLM.MaxTokens),
		})
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		issues = append(issues, ValidationIssue{
			Path:    "llm.temperature",
			Message: fmt.Sprintf("must be 0-2, got %g", cfg.LLM.Temperature),
		})
	}

	if cfg.Conversation.StartDistance < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "conversation.startDistance",
			Message: fmt.Sprintf("must not be negative, got %g", cfg.Conversation.StartDistance),
		})
	}
	if cfg.Conversation.MaxDistance < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "conversation.maxDistance",
			Message: fmt.Sprintf("must not be negative, got %g", cfg.Conversation.MaxDistance),
		})
	}
	if cfg.Conversation.MaxDistance > 0 && cfg.Conversation.MaxDistance < cfg.Conversation.StartDistance {
		issues = append(issues, ValidationIssue{
			Path:    "conversation.maxDistance",
			Message: "must be at least startDistance when set",
		})
	}
	if cfg.Conversation.TickIntervalMs < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "conversation.tickIntervalMs",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Conversation.TickIntervalMs),
		})
	}
	if cfg.Conversation.Workers < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "conversation.workers",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Conversation.Workers),
		})
	}

	validStores := []string{"sqlite", "memory"}
	if cfg.Memory.Store != "" && !slices.Contains(validStores, cfg.Memory.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "memory.store",
			Message: fmt.Sprintf("must be one of %v, got %q", validStores, cfg.Memory.Store),
		})
	}
	if cfg.Memory.MaxSummaries < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "memory.maxSummaries",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Memory.MaxSummaries),
		})
	}

	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}

	validBinds := []string{"auto", "lan", "loopback", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Gateway.Bind),
		})
	}

	validAuthModes := []string{"token", "password"}
	if cfg.Gateway.Auth.Mode != "" && !slices.Contains(validAuthModes, cfg.Gateway.Auth.Mode) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.auth.mode",
			Message: fmt.Sprintf("must be one of %v, got %q", validAuthModes, cfg.Gateway.Auth.Mode),
		})
	}

	if cfg.Gateway.TLS.Enabled {
		if cfg.Gateway.TLS.CertPath == "" {
			issues = append(issues, ValidationIssue{
				Path:    "gateway.tls.certPath",
				Message: "required when TLS is enabled",
			})
		}
		if cfg.Gateway.TLS.KeyPath == "" {
			issues = append(issues, ValidationIssue{
				Path:    "gateway.tls.keyPath",
				Message: "required when TLS is enabled",
			})
		}
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	return issues
}

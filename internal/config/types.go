package config

// Config is the root configuration for colonychat.
type Config struct {
	LLM          LLMConfig          `yaml:"llm,omitempty"`
	Conversation ConversationConfig `yaml:"conversation,omitempty"`
	Memory       MemoryConfig       `yaml:"memory,omitempty"`
	Prompt       PromptConfig       `yaml:"prompt,omitempty"`
	Gateway      GatewayConfig      `yaml:"gateway,omitempty"`
	Logging      LoggingConfig      `yaml:"logging,omitempty"`
	Hooks        HooksConfig        `yaml:"hooks,omitempty"`
}

// LLMConfig selects the model and completion parameters.
type LLMConfig struct {
	APIKey      string  `yaml:"apiKey,omitempty"`
	Endpoint    string  `yaml:"endpoint,omitempty"` // OpenRouter-compatible chat completions URL
	Model       string  `yaml:"model,omitempty"`
	MaxTokens   int     `yaml:"maxTokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// ConversationConfig controls session lifecycle behavior.
type ConversationConfig struct {
	StartDistance  float64 `yaml:"startDistance,omitempty"`  // blocks; max range to open a conversation
	MaxDistance    float64 `yaml:"maxDistance,omitempty"`    // blocks; walking past this ends the session
	TickIntervalMs int     `yaml:"tickIntervalMs,omitempty"` // maintenance tick period
	ExitWords      string  `yaml:"exitWords,omitempty"`      // comma-separated farewell words
	Workers        int     `yaml:"workers,omitempty"`        // LLM dispatcher pool size
}

// MemoryConfig configures conversation memory retention.
type MemoryConfig struct {
	Store        string `yaml:"store,omitempty"`        // "sqlite" | "memory"
	MaxSummaries int    `yaml:"maxSummaries,omitempty"` // retained summaries per NPC
}

// PromptConfig allows overriding the built-in persona template.
type PromptConfig struct {
	Template string `yaml:"template,omitempty"`
}

// GatewayConfig controls the gateway HTTP/WebSocket server.
type GatewayConfig struct {
	Port           int              `yaml:"port,omitempty"`
	Bind           string           `yaml:"bind,omitempty"` // "auto" | "lan" | "loopback" | "custom"
	CustomBindHost string           `yaml:"customBindHost,omitempty"`
	Auth           GatewayAuth      `yaml:"auth,omitempty"`
	TLS            GatewayTLS       `yaml:"tls,omitempty"`
	ControlUI      GatewayControlUI `yaml:"controlUi,omitempty"`
}

// GatewayAuth configures gateway authentication.
type GatewayAuth struct {
	Mode     string `yaml:"mode,omitempty"` // "token" | "password"
	Token    string `yaml:"token,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// GatewayTLS configures TLS for the gateway.
type GatewayTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// GatewayControlUI configures browser access to the gateway.
type GatewayControlUI struct {
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}

// HooksConfig defines shell commands run on lifecycle events.
type HooksConfig struct {
	SessionStart []HookEntry `yaml:"sessionStart,omitempty"`
	SessionEnd   []HookEntry `yaml:"sessionEnd,omitempty"`
	ServerStart  []HookEntry `yaml:"serverStart,omitempty"`
	ServerStop   []HookEntry `yaml:"serverStop,omitempty"`
}

// HookEntry defines a single hook action.
type HookEntry struct {
	Command string `yaml:"command"`
	Timeout int    `yaml:"timeout,omitempty"` // milliseconds
}

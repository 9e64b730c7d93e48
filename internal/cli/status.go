package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thereallemon/colonychat/internal/config"
	"github.com/thereallemon/colonychat/internal/version"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show colonychat status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Colonychat %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			// Load config
			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Printf("Config:  error loading: %v\n", err)
				return nil
			}

			// Gateway config
			fmt.Printf("Gateway: port=%d bind=%s auth=%s\n",
				cfg.Gateway.Port, cfg.Gateway.Bind, cfg.Gateway.Auth.Mode)

			// LLM config
			key := "not set"
			if cfg.LLM.APIKey != "" {
				key = "set"
			}
			fmt.Printf("LLM:     model=%s maxTokens=%d temperature=%.2f apiKey=%s\n",
				cfg.LLM.Model, cfg.LLM.MaxTokens, cfg.LLM.Temperature, key)

			// Conversation config
			fmt.Printf("Talk:    startDistance=%.0f maxDistance=%.0f tick=%dms workers=%d\n",
				cfg.Conversation.StartDistance, cfg.Conversation.MaxDistance,
				cfg.Conversation.TickIntervalMs, cfg.Conversation.Workers)
			fmt.Printf("Exit:    %v\n", cfg.Conversation.ExitWordList())

			// Memory config
			fmt.Printf("Memory:  store=%s maxSummaries=%d\n", cfg.Memory.Store, cfg.Memory.MaxSummaries)

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}

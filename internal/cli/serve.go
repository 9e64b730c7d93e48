package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/thereallemon/colonychat/internal/config"
	"github.com/thereallemon/colonychat/internal/gateway"
	"github.com/thereallemon/colonychat/internal/hooks"
	"github.com/thereallemon/colonychat/internal/host"
	"github.com/thereallemon/colonychat/internal/llm"
	"github.com/thereallemon/colonychat/internal/logging"
	"github.com/thereallemon/colonychat/internal/memory"
	"github.com/thereallemon/colonychat/internal/prompt"
	"github.com/thereallemon/colonychat/internal/session"
	"github.com/thereallemon/colonychat/internal/state"
	"github.com/thereallemon/colonychat/internal/store"
	"github.com/thereallemon/colonychat/internal/world"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the conversation server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}

			// The flag wins over the config file for log level.
			if logLevel == "" && cfg.Logging.Level != "" {
				log = logging.New(nil, cfg.Logging.Level, cfg.Logging.ConsoleStyle)
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			// Load raw config for RPC access
			raw, err := config.LoadRaw(paths.Config)
			if err != nil {
				raw = make(map[string]any)
			}

			hookMgr := hooks.NewManager(log)
			registerCommandHooks(hookMgr, cfg.Hooks, log)

			// Memory store (SQLite or in-memory)
			var mem memory.Store
			if cfg.Memory.Store == "sqlite" {
				db, err := store.Open(paths.DatabasePath(), log)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()
				mem, err = store.NewMemoryStore(db, cfg.Memory.MaxSummaries)
				if err != nil {
					return fmt.Errorf("loading memories: %w", err)
				}
				log.Info().Str("path", paths.DatabasePath()).Msg("using SQLite memory store")
			} else {
				mem = memory.NewInMemory(cfg.Memory.MaxSummaries)
				log.Info().Msg("using in-memory memory store")
			}

			client := llm.NewOpenRouterClient(cfg.LLM.Endpoint, cfg.LLM.APIKey, log)
			if cfg.LLM.APIKey == "" {
				log.Warn().Msg("no API key configured, LLM requests will be rejected upstream")
			}

			mirror := world.NewMirror(nil, log)
			mgr := state.NewManager(mirror, hookMgr, cfg.Conversation.MaxDistance, log)
			dispatch := host.NewDispatcher(cfg.Conversation.Workers, log)
			defer dispatch.Close()
			loop := host.NewLoop(time.Duration(cfg.Conversation.TickIntervalMs)*time.Millisecond, log, mgr)

			srv := gateway.New(cfg, log,
				gateway.WithConfigRaw(raw),
				gateway.WithMirror(mirror),
				gateway.WithMemory(mem),
				gateway.WithHooks(hookMgr),
			)

			svc := session.NewService(mgr, mirror, client, prompt.NewBuilder(cfg.Prompt.Template, cfg.Memory.MaxSummaries), mem, loop, dispatch, srv, hookMgr, session.Options{
				Model:         cfg.LLM.Model,
				MaxTokens:     cfg.LLM.MaxTokens,
				Temperature:   cfg.LLM.Temperature,
				StartDistance: cfg.Conversation.StartDistance,
				ExitWords:     cfg.Conversation.ExitWordList(),
			}, log)
			srv.SetConversations(svc)
			mirror.SetSink(srv)

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return loop.Run(ctx) })
			g.Go(func() error { return srv.Start(ctx) })

			if err := g.Wait(); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (auto, lan, loopback, custom)")

	return cmd
}

// registerCommandHooks wires shell commands from the config onto lifecycle
// events. The event payload is delivered as JSON on the COLONYCHAT_PAYLOAD
// environment variable.
func registerCommandHooks(hm *hooks.Manager, cfg config.HooksConfig, log *logging.Logger) {
	register := func(event string, entries []config.HookEntry) {
		for i, entry := range entries {
			if entry.Command == "" {
				continue
			}
			name := fmt.Sprintf("config-%d", i)
			cmd := entry.Command
			timeout := time.Duration(entry.Timeout) * time.Millisecond
			if timeout <= 0 {
				timeout = 10 * time.Second
			}
			hm.On(event, name, func(ctx context.Context, p hooks.Payload) error {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()

				payload, err := json.Marshal(p.Data)
				if err != nil {
					payload = []byte("{}")
				}
				c := exec.CommandContext(ctx, "sh", "-c", cmd)
				c.Env = append(c.Environ(),
					"COLONYCHAT_EVENT="+p.Event,
					"COLONYCHAT_PAYLOAD="+string(payload),
				)
				out, err := c.CombinedOutput()
				if err != nil {
					log.Warn().Str("event", p.Event).Str("output", string(out)).Err(err).Msg("hook command failed")
					return err
				}
				return nil
			})
		}
	}

	register(hooks.EventSessionStart, cfg.SessionStart)
	register(hooks.EventSessionEnd, cfg.SessionEnd)
	register(hooks.EventServerStart, cfg.ServerStart)
	register(hooks.EventServerStop, cfg.ServerStop)
}

package gateway

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/thereallemon/colonychat/internal/session"
	"github.com/thereallemon/colonychat/internal/state"
)

// safeConfigPrefixes lists config path prefixes that can be read and
// written via RPC. All other paths are denied by default (allowlist).
var safeConfigPrefixes = []string{
	"conversation",
	"memory",
	"prompt",
	"logging",
	"gateway.port",
	"gateway.bind",
	"gateway.controlUi",
	"llm.model",
	"llm.maxTokens",
	"llm.temperature",
}

func isAllowedConfigPath(key string) bool {
	for _, prefix := range safeConfigPrefixes {
		if key == prefix || strings.HasPrefix(key, prefix+".") {
			return true
		}
	}
	return false
}

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

// registerRPCHandlers sets up all JSON-RPC method handlers.
func (s *Server) registerRPCHandlers() {
	s.Handle("health", s.rpcHealth)
	s.Handle("status", s.rpcStatus)
	s.Handle("config.get", s.rpcConfigGet)
	s.Handle("config.set", s.rpcConfigSet)
	s.Handle("conversation.start", s.rpcConversationStart)
	s.Handle("conversation.message", s.rpcConversationMessage)
	s.Handle("conversation.end", s.rpcConversationEnd)
	s.Handle("world.update", s.rpcWorldUpdate)
	s.Handle("memory.list", s.rpcMemoryList)
}

// Built-in RPC handlers

func (s *Server) rpcHealth(rc *RequestContext) {
	rc.Respond(HealthResponse{
		Status:  "ok",
		Version: s.version,
		Clients: s.clients.Count(),
	})
}

func (s *Server) rpcStatus(rc *RequestContext) {
	convs := s.conversations()
	if convs == nil {
		rc.RespondError("unavailable", "conversation service not running")
		return
	}
	payload := convs.Status()
	payload["clients"] = s.clients.Count()
	payload["hosts"] = len(s.clients.Hosts())
	payload["uptimeMs"] = int64(0)
	if !s.startedAt.IsZero() {
		payload["uptimeMs"] = time.Since(s.startedAt).Milliseconds()
	}
	rc.Respond(payload)
}

func (s *Server) rpcConversationStart(rc *RequestContext) {
	convs := s.conversations()
	if convs == nil {
		rc.RespondError("unavailable", "conversation service not running")
		return
	}
	if rc.Client.IsHost() {
		rc.RespondError("forbidden", "hosts cannot start conversations")
		return
	}

	var p StartParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	err := convs.Start(rc.PlayerID(), p.NPCID)
	switch {
	case err == nil:
		rc.Respond(map[string]any{"npcId": p.NPCID})
	case errors.Is(err, state.ErrPlayerBusy):
		rc.RespondError("player_busy", err.Error())
	case errors.Is(err, state.ErrNPCBusy):
		rc.RespondError("npc_busy", err.Error())
	case errors.Is(err, state.ErrEntityGone):
		rc.RespondError("not_found", err.Error())
	case errors.Is(err, session.ErrTooFar):
		rc.RespondError("too_far", err.Error())
	default:
		rc.RespondError("internal", err.Error())
	}
}

func (s *Server) rpcConversationMessage(rc *RequestContext) {
	convs := s.conversations()
	if convs == nil {
		rc.RespondError("unavailable", "conversation service not running")
		return
	}
	if rc.Client.IsHost() {
		rc.RespondError("forbidden", "hosts cannot send chat")
		return
	}

	var p MessageParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if strings.TrimSpace(p.Text) == "" {
		rc.RespondError("invalid_params", "text is required")
		return
	}

	handled := convs.Message(rc.PlayerID(), p.Text)
	result := MessageResult{Handled: handled}
	if handled {
		result.Echo = p.Text
	}
	rc.Respond(result)
}

func (s *Server) rpcConversationEnd(rc *RequestContext) {
	convs := s.conversations()
	if convs == nil {
		rc.RespondError("unavailable", "conversation service not running")
		return
	}
	if rc.Client.IsHost() {
		rc.RespondError("forbidden", "hosts cannot end conversations")
		return
	}

	rc.Respond(EndResult{Ended: convs.End(rc.PlayerID())})
}

func (s *Server) rpcWorldUpdate(rc *RequestContext) {
	if !rc.Client.IsHost() {
		rc.RespondError("forbidden", "only hosts push world updates")
		return
	}
	if s.mirror == nil {
		rc.RespondError("unavailable", "world mirror not running")
		return
	}

	var p WorldUpdateParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	s.mirror.ApplyUpdate(p.Update)
	rc.Respond(map[string]any{
		"npcs":    len(p.Update.NPCs),
		"players": len(p.Update.Players),
		"events":  len(p.Update.Events),
	})
}

type memoryListParams struct {
	NPCID int `json:"npcId"`
}

func (s *Server) rpcMemoryList(rc *RequestContext) {
	if s.mem == nil {
		rc.RespondError("unavailable", "memory store not running")
		return
	}

	var p memoryListParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	summaries := s.mem.Get(p.NPCID)
	if summaries == nil {
		summaries = []string{}
	}
	rc.Respond(map[string]any{"npcId": p.NPCID, "summaries": summaries})
}

type configGetParams struct {
	Key string `json:"key"`
}

func (s *Server) rpcConfigGet(rc *RequestContext) {
	var p configGetParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.Key == "" {
		rc.RespondError("invalid_params", "key is required")
		return
	}
	if !isAllowedConfigPath(p.Key) {
		rc.RespondError("forbidden", "access denied for config path: "+p.Key)
		return
	}

	s.mu.RLock()
	raw := s.configRaw
	s.mu.RUnlock()

	path, err := parseConfigPathRPC(p.Key)
	if err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	val, ok := getValueAtPathRPC(raw, path)
	if !ok {
		rc.RespondError("not_found", "key not found: "+p.Key)
		return
	}
	rc.Respond(map[string]any{"key": p.Key, "value": val})
}

type configSetParams struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func (s *Server) rpcConfigSet(rc *RequestContext) {
	var p configSetParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.Key == "" {
		rc.RespondError("invalid_params", "key is required")
		return
	}
	if !isAllowedConfigPath(p.Key) {
		rc.RespondError("forbidden", "cannot modify config path: "+p.Key)
		return
	}

	path, err := parseConfigPathRPC(p.Key)
	if err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	s.mu.Lock()
	setValueAtPathRPC(s.configRaw, path, p.Value)
	s.mu.Unlock()

	rc.Respond(map[string]any{"key": p.Key, "value": p.Value})
}

// Helpers that mirror config.ParseConfigPath / GetValueAtPath without importing config
// path logic here; they operate on raw maps only.

var errEmptyConfigPath = errors.New("empty config path")

func parseConfigPathRPC(raw string) ([]string, error) {
	if raw == "" {
		return nil, errEmptyConfigPath
	}
	var parts []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == '.' {
			if i == start {
				return nil, errEmptyConfigPath
			}
			parts = append(parts, raw[start:i])
			start = i + 1
		}
	}
	return parts, nil
}

func getValueAtPathRPC(root map[string]any, path []string) (any, bool) {
	current := any(root)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func setValueAtPathRPC(root map[string]any, path []string, value any) {
	current := root
	for _, key := range path[:len(path)-1] {
		next, ok := current[key]
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		m, ok := next.(map[string]any)
		if !ok {
			m = map[string]any{}
			current[key] = m
		}
		current = m
	}
	current[path[len(path)-1]] = value
}

// Package session drives individual NPC conversations: turn handling,
// completion dispatch, and end-of-conversation summaries.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/thereallemon/colonychat/internal/domain"
	"github.com/thereallemon/colonychat/internal/hooks"
	"github.com/thereallemon/colonychat/internal/llm"
	"github.com/thereallemon/colonychat/internal/logging"
	"github.com/thereallemon/colonychat/internal/memory"
	"github.com/thereallemon/colonychat/internal/prompt"
	"github.com/thereallemon/colonychat/internal/state"
)

// Notifier delivers NPC output to the player's client and keeps the client's
// conversation indicator in sync.
type Notifier interface {
	Deliver(playerID, text string)
	SyncState(playerID string, npcID int, active bool)
}

// WorldView is the read-only world access a conversation needs.
type WorldView interface {
	NPC(id int) (domain.NPCSnapshot, bool)
	Player(id string) (domain.PlayerSnapshot, bool)
	RecentEvents(n int) []domain.WorldEvent
}

// completionPoster hands completion callbacks back to the tick loop.
type completionPoster interface {
	Post(fn func())
}

// worker runs blocking LLM calls off the tick loop.
type worker interface {
	Submit(task func()) bool
}

// Handler owns one conversation's turn state. All fields below the
// constructor-set ones are touched only from the tick loop goroutine.
type Handler struct {
	sess     *domain.Session
	npcName  string
	playerID string

	mgr      *state.Manager
	world    WorldView
	client   llm.Client
	prompts  *prompt.Builder
	mem      memory.Store
	loop     completionPoster
	dispatch worker
	notifier Notifier
	hooks    *hooks.Manager
	log      *logging.Logger

	model       string
	maxTokens   int
	temperature float64

	history  []llm.Message
	inFlight bool
	ended    bool
	endOnce  sync.Once
}

// OnMessage handles one player chat line. Runs on the tick loop.
func (h *Handler) OnMessage(text string) {
	if h.ended {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if h.inFlight {
		h.notifier.Deliver(h.playerID, fmt.Sprintf("%s is still thinking...", h.npcName))
		return
	}

	h.mgr.Touch(h.sess.NPCID)

	npc, npcOK := h.world.NPC(h.sess.NPCID)
	player, playerOK := h.world.Player(h.playerID)
	if !npcOK || !playerOK {
		// The next tick will notice and end the session.
		return
	}

	h.history = append(h.history, llm.Message{Role: llm.RoleUser, Content: text})

	req := llm.CompletionRequest{
		Model:       h.model,
		System:      h.prompts.Build(npc, player, h.mem.Get(npc.ID), h.world.RecentEvents(prompt.MaxEvents)),
		Messages:    append([]llm.Message(nil), h.history...),
		MaxTokens:   h.maxTokens,
		Temperature: h.temperature,
	}

	h.inFlight = true
	h.dispatch.Submit(func() {
		resp, err := h.client.Complete(context.Background(), req)
		h.loop.Post(func() { h.onCompletion(resp, err) })
	})
}

// onCompletion lands an LLM result back on the tick loop. Results for a
// session that ended while the call was in flight are discarded.
func (h *Handler) onCompletion(resp *llm.CompletionResponse, err error) {
	h.inFlight = false
	if h.ended {
		h.log.Debug().Str("session", h.sess.ID).Msg("discarding completion for ended session")
		return
	}
	if err != nil {
		h.log.Warn().Err(err).Str("session", h.sess.ID).Msg("completion failed")
		h.notifier.Deliver(h.playerID, fmt.Sprintf("%s seems lost in thought.", h.npcName))
		return
	}

	h.history = append(h.history, llm.Message{Role: llm.RoleAssistant, Content: resp.Content})
	h.notifier.Deliver(h.playerID, resp.Content)
	h.hooks.EmitAsync(context.Background(), hooks.EventTurnComplete, map[string]any{
		"sessionId": h.sess.ID,
		"npcId":     h.sess.NPCID,
		"turns":     len(h.history) / 2,
	})
}

// End finalizes the conversation. Safe to call more than once; only the
// first call does anything. The session must already be removed from the
// state manager when this runs.
func (h *Handler) End(reason domain.EndReason) {
	h.endOnce.Do(func() {
		h.ended = true
		h.log.Info().
			Str("session", h.sess.ID).
			Str("reason", string(reason)).
			Int("turns", len(h.history)/2).
			Msg("conversation finished")

		if reason == domain.ReasonExitWord || reason == domain.ReasonCommand {
			h.notifier.Deliver(h.playerID, fmt.Sprintf("%s waves goodbye.", h.npcName))
		}
		h.notifier.SyncState(h.playerID, h.sess.NPCID, false)

		if h.exchanges() == 0 {
			return
		}
		history := append([]llm.Message(nil), h.history...)
		h.dispatch.Submit(func() { h.summarize(history) })
	})
}

// exchanges counts completed user/assistant turns.
func (h *Handler) exchanges() int {
	n := 0
	for _, msg := range h.history {
		if msg.Role == llm.RoleAssistant {
			n++
		}
	}
	return n
}

// summarize condenses the conversation into one memory line. Runs on a
// dispatcher worker; the memory store is safe for concurrent use. A failed
// summary call falls back to a plain local line so the NPC still remembers
// that the chat happened.
func (h *Handler) summarize(history []llm.Message) {
	playerName := h.playerID
	if p, ok := h.world.Player(h.playerID); ok {
		playerName = p.Name
	}

	req := llm.CompletionRequest{
		Model: h.model,
		System: fmt.Sprintf(
			"Summarize the conversation in one short sentence from %s's point of view, in the past tense. Mention %s by name.",
			h.npcName, playerName),
		Messages:    history,
		MaxTokens:   60,
		Temperature: 0.3,
	}

	summary := fmt.Sprintf("Had a chat with %s.", playerName)
	resp, err := h.client.Complete(context.Background(), req)
	if err != nil {
		h.log.Warn().Err(err).Str("session", h.sess.ID).Msg("summary failed, storing fallback")
	} else {
		summary = strings.TrimSpace(resp.Content)
	}
	h.mem.Append(h.sess.NPCID, summary)
}

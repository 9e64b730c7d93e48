package session

import (
	"errors"
	"strings"

	"github.com/thereallemon/colonychat/internal/domain"
	"github.com/thereallemon/colonychat/internal/hooks"
	"github.com/thereallemon/colonychat/internal/llm"
	"github.com/thereallemon/colonychat/internal/logging"
	"github.com/thereallemon/colonychat/internal/memory"
	"github.com/thereallemon/colonychat/internal/prompt"
	"github.com/thereallemon/colonychat/internal/state"
)

// ErrTooFar means the player tried to start a conversation from outside the
// start range.
var ErrTooFar = errors.New("npc too far away to talk to")

// caller runs a function on the tick loop and waits for it.
type caller interface {
	completionPoster
	Call(fn func())
}

// Options carries the tunables a conversation needs.
type Options struct {
	Model         string
	MaxTokens     int
	Temperature   float64
	StartDistance float64  // blocks; zero or negative disables the check
	ExitWords     []string // lowercase farewell words that end a session
}

// Service is the gateway-facing API for conversations. Every method funnels
// through the tick loop so session state is only ever touched from one
// goroutine.
type Service struct {
	mgr      *state.Manager
	world    WorldView
	client   llm.Client
	prompts  *prompt.Builder
	mem      memory.Store
	loop     caller
	dispatch worker
	notifier Notifier
	hooks    *hooks.Manager
	log      *logging.Logger
	opts     Options

	startDistSqr float64
	exitWords    map[string]struct{}
}

// NewService wires a conversation service.
func NewService(
	mgr *state.Manager,
	world WorldView,
	client llm.Client,
	prompts *prompt.Builder,
	mem memory.Store,
	loop caller,
	dispatch worker,
	notifier Notifier,
	hk *hooks.Manager,
	opts Options,
	log *logging.Logger,
) *Service {
	words := make(map[string]struct{}, len(opts.ExitWords))
	for _, w := range opts.ExitWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			words[w] = struct{}{}
		}
	}
	return &Service{
		mgr:          mgr,
		world:        world,
		client:       client,
		prompts:      prompts,
		mem:          mem,
		loop:         loop,
		dispatch:     dispatch,
		notifier:     notifier,
		hooks:        hk,
		log:          log.Sub("session"),
		opts:         opts,
		startDistSqr: opts.StartDistance * opts.StartDistance,
		exitWords:    words,
	}
}

// Start opens a conversation between a player and an NPC and sends the
// deterministic greeting. The greeting never goes through the LLM.
func (s *Service) Start(playerID string, npcID int) error {
	var err error
	s.loop.Call(func() { err = s.start(playerID, npcID) })
	return err
}

func (s *Service) start(playerID string, npcID int) error {
	npc, npcOK := s.world.NPC(npcID)
	player, playerOK := s.world.Player(playerID)
	if !npcOK || !playerOK {
		return state.ErrEntityGone
	}
	if s.startDistSqr > 0 && npc.Position.DistSqr(player.Position) > s.startDistSqr {
		return ErrTooFar
	}

	sess, err := s.mgr.Start(playerID, npcID)
	if err != nil {
		return err
	}

	h := &Handler{
		sess:        sess,
		npcName:     npc.Name,
		playerID:    playerID,
		mgr:         s.mgr,
		world:       s.world,
		client:      s.client,
		prompts:     s.prompts,
		mem:         s.mem,
		loop:        s.loop,
		dispatch:    s.dispatch,
		notifier:    s.notifier,
		hooks:       s.hooks,
		log:         s.log,
		model:       s.opts.Model,
		maxTokens:   s.opts.MaxTokens,
		temperature: s.opts.Temperature,
	}
	s.mgr.SetHandler(npcID, h)

	s.notifier.SyncState(playerID, npcID, true)
	s.notifier.Deliver(playerID, prompt.Greeting(npc, player))
	return nil
}

// Message routes one chat line from a player. Returns false when the player
// has no open session, so the host can treat the line as ordinary chat.
func (s *Service) Message(playerID, text string) bool {
	var handled bool
	s.loop.Call(func() { handled = s.message(playerID, text) })
	return handled
}

func (s *Service) message(playerID, text string) bool {
	sess, ok := s.mgr.SessionForPlayer(playerID)
	if !ok {
		return false
	}
	if s.isExitWord(text) {
		s.endSession(sess.NPCID, domain.ReasonExitWord)
		return true
	}
	if h, ok := s.mgr.HandlerFor(sess.NPCID); ok {
		if sh, ok := h.(*Handler); ok {
			sh.OnMessage(text)
			return true
		}
	}
	return true
}

// End closes the player's session on explicit request. Returns false when
// there was nothing to end.
func (s *Service) End(playerID string) bool {
	var ok bool
	s.loop.Call(func() { ok = s.end(playerID) })
	return ok
}

func (s *Service) end(playerID string) bool {
	sess, ok := s.mgr.SessionForPlayer(playerID)
	if !ok {
		return false
	}
	s.endSession(sess.NPCID, domain.ReasonCommand)
	return true
}

// EndForNPC closes the session an NPC is in, if any. Used by host-side
// administrative commands.
func (s *Service) EndForNPC(npcID int, reason domain.EndReason) bool {
	var ok bool
	s.loop.Call(func() {
		_, h, ended := s.mgr.End(npcID)
		if ended && h != nil {
			h.End(reason)
		}
		ok = ended
	})
	return ok
}

func (s *Service) endSession(npcID int, reason domain.EndReason) {
	_, h, ok := s.mgr.End(npcID)
	if !ok {
		return
	}
	if h == nil {
		s.log.Warn().Int("npc", npcID).Msg("session had no handler attached")
		return
	}
	h.End(reason)
}

func (s *Service) isExitWord(text string) bool {
	_, ok := s.exitWords[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// ActiveCount reports the number of open conversations.
func (s *Service) ActiveCount() int {
	return s.mgr.Count()
}

// Status describes the service for the status RPC.
func (s *Service) Status() map[string]any {
	sessions := s.mgr.Sessions()
	list := make([]map[string]any, 0, len(sessions))
	for _, sess := range sessions {
		list = append(list, map[string]any{
			"id":       sess.ID,
			"playerId": sess.PlayerID,
			"npcId":    sess.NPCID,
			"started":  sess.CreatedAt,
		})
	}
	return map[string]any{
		"model":    s.opts.Model,
		"active":   len(list),
		"sessions": list,
	}
}

// Package state tracks active NPC conversation sessions and the world
// side effects that must hold while each one is open: frozen saturation,
// halted pathing, and the NPC facing its conversation partner.
package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thereallemon/colonychat/internal/domain"
	"github.com/thereallemon/colonychat/internal/hooks"
	"github.com/thereallemon/colonychat/internal/logging"
)

var (
	// ErrPlayerBusy means the player already has an open session.
	ErrPlayerBusy = errors.New("player already in a conversation")
	// ErrNPCBusy means the NPC is already talking to someone else.
	ErrNPCBusy = errors.New("npc already in a conversation")
	// ErrEntityGone means the player or NPC is not present in the world.
	ErrEntityGone = errors.New("entity not found in world")
)

// World is the view of game state the manager reads and the restoration
// commands it issues. Writes are fire-and-forget; the mirror forwards them
// to the game host.
type World interface {
	NPC(id int) (domain.NPCSnapshot, bool)
	Player(id string) (domain.PlayerSnapshot, bool)
	SetSaturation(npcID int, value float64)
	HaltMovement(npcID int)
	ResumeMovement(npcID int)
	LookAt(npcID int, playerID string)
	Notify(playerID, text string)
}

// Handler receives the end-of-session callback so it can finalize the
// conversation (summary, farewell) after the manager has released the NPC.
type Handler interface {
	End(reason domain.EndReason)
}

// Manager owns the session table. All maps are guarded by one mutex; the
// invariant is that sessions, byPlayer, and handlers cover exactly the same
// set of open conversations.
type Manager struct {
	mu       sync.Mutex
	sessions map[int]*domain.Session    // by NPC id
	byPlayer map[string]*domain.Session // by player id
	handlers map[int]Handler            // by NPC id

	world World
	hooks *hooks.Manager
	log   *logging.Logger

	// maxDistSqr <= 0 disables the distance check.
	maxDistSqr float64
}

// NewManager creates a session manager. maxDistance is in blocks; zero or
// negative disables out-of-range termination.
func NewManager(world World, hk *hooks.Manager, maxDistance float64, log *logging.Logger) *Manager {
	return &Manager{
		sessions:   make(map[int]*domain.Session),
		byPlayer:   make(map[string]*domain.Session),
		handlers:   make(map[int]Handler),
		world:      world,
		hooks:      hk,
		log:        log.Sub("state"),
		maxDistSqr: maxDistance * maxDistance,
	}
}

// Start opens a session between a player and an NPC. It freezes the NPC's
// saturation at its current value, halts its movement, and points it at the
// player. Fails without touching any existing session if either party is
// already engaged or missing from the world.
func (m *Manager) Start(playerID string, npcID int) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.byPlayer[playerID]; busy {
		return nil, ErrPlayerBusy
	}
	if _, busy := m.sessions[npcID]; busy {
		return nil, ErrNPCBusy
	}

	npc, ok := m.world.NPC(npcID)
	if !ok {
		return nil, ErrEntityGone
	}
	if _, ok := m.world.Player(playerID); !ok {
		return nil, ErrEntityGone
	}

	now := time.Now()
	sess := &domain.Session{
		ID:               uuid.NewString(),
		PlayerID:         playerID,
		NPCID:            npcID,
		CreatedAt:        now,
		LastActive:       now,
		FrozenSaturation: npc.Saturation,
	}
	m.sessions[npcID] = sess
	m.byPlayer[playerID] = sess

	m.world.HaltMovement(npcID)
	m.world.LookAt(npcID, playerID)

	m.log.Info().
		Str("session", sess.ID).
		Str("player", playerID).
		Int("npc", npcID).
		Float64("saturation", npc.Saturation).
		Msg("session started")

	m.hooks.EmitAsync(context.Background(), hooks.EventSessionStart, map[string]any{
		"sessionId": sess.ID,
		"playerId":  playerID,
		"npcId":     npcID,
	})
	return sess, nil
}

// SetHandler attaches the conversation handler for an open session. The
// manager calls it back when a tick decides the session must end.
func (m *Manager) SetHandler(npcID int, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[npcID]; ok {
		m.handlers[npcID] = h
	}
}

// End closes the session for an NPC, restores its saturation to the frozen
// value, and resumes its movement. Safe to call more than once; repeat calls
// return false. The detached handler, if any, is returned so the caller can
// finalize the conversation.
func (m *Manager) End(npcID int) (*domain.Session, Handler, bool) {
	m.mu.Lock()
	sess, ok := m.sessions[npcID]
	if !ok {
		m.mu.Unlock()
		return nil, nil, false
	}
	h := m.handlers[npcID]
	delete(m.sessions, npcID)
	delete(m.byPlayer, sess.PlayerID)
	delete(m.handlers, npcID)
	m.mu.Unlock()

	m.world.SetSaturation(npcID, sess.FrozenSaturation)
	m.world.ResumeMovement(npcID)

	m.log.Info().
		Str("session", sess.ID).
		Str("player", sess.PlayerID).
		Int("npc", npcID).
		Msg("session ended")

	m.hooks.EmitAsync(context.Background(), hooks.EventSessionEnd, map[string]any{
		"sessionId": sess.ID,
		"playerId":  sess.PlayerID,
		"npcId":     npcID,
	})
	return sess, h, true
}

type endCandidate struct {
	npcID  int
	reason domain.EndReason
}

// Tick runs one maintenance pass: reassert the frozen saturation and the
// look-at target for every open session, and terminate sessions whose player
// left, whose NPC despawned, or whose player wandered out of range. Handler
// callbacks run after the session table has been updated, never under the lock.
func (m *Manager) Tick() {
	m.mu.Lock()
	var ended []endCandidate
	for npcID, sess := range m.sessions {
		npc, npcOK := m.world.NPC(npcID)
		if !npcOK {
			ended = append(ended, endCandidate{npcID, domain.ReasonNPCGone})
			continue
		}
		player, playerOK := m.world.Player(sess.PlayerID)
		if !playerOK {
			ended = append(ended, endCandidate{npcID, domain.ReasonPlayerGone})
			continue
		}
		if m.maxDistSqr > 0 && npc.Position.DistSqr(player.Position) > m.maxDistSqr {
			ended = append(ended, endCandidate{npcID, domain.ReasonDistance})
			continue
		}
		m.world.SetSaturation(npcID, sess.FrozenSaturation)
		m.world.LookAt(npcID, sess.PlayerID)
	}
	m.mu.Unlock()

	for _, c := range ended {
		sess, h, ok := m.End(c.npcID)
		if !ok {
			continue
		}
		if h == nil {
			m.log.Warn().
				Int("npc", c.npcID).
				Str("reason", string(c.reason)).
				Msg("session ended without a handler attached")
			continue
		}
		if c.reason == domain.ReasonDistance {
			m.world.Notify(sess.PlayerID, "You wandered too far away to keep talking.")
		}
		h.End(c.reason)
	}
}

// Touch bumps the session's last-activity timestamp.
func (m *Manager) Touch(npcID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[npcID]; ok {
		sess.LastActive = time.Now()
	}
}

// SessionForPlayer returns the player's open session, if any.
func (m *Manager) SessionForPlayer(playerID string) (*domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.byPlayer[playerID]
	return sess, ok
}

// SessionForNPC returns the NPC's open session, if any.
func (m *Manager) SessionForNPC(npcID int) (*domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[npcID]
	return sess, ok
}

// HandlerFor returns the conversation handler attached to an NPC's session.
func (m *Manager) HandlerFor(npcID int) (Handler, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handlers[npcID]
	return h, ok && h != nil
}

// Sessions returns a snapshot of all open sessions.
func (m *Manager) Sessions() []*domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	return out
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Package world mirrors game state pushed by the host connection. Reads are
// served from the mirror; writes are applied locally and forwarded to the
// host as commands.
package world

import (
	"sync"

	"github.com/thereallemon/colonychat/internal/domain"
	"github.com/thereallemon/colonychat/internal/logging"
)

// Colony event retention. Prompts only ever read a short tail.
const maxRetainedEvents = 64

// CommandSink carries world commands back to the game host. The gateway
// implements it by broadcasting to connected host clients.
type CommandSink interface {
	SetSaturation(npcID int, value float64)
	HaltMovement(npcID int)
	ResumeMovement(npcID int)
	LookAt(npcID int, playerID string)
	Notify(playerID, text string)
}

// Mirror is the local copy of host-reported world state.
type Mirror struct {
	mu      sync.RWMutex
	npcs    map[int]domain.NPCSnapshot
	players map[string]domain.PlayerSnapshot
	events  []domain.WorldEvent

	sink CommandSink
	log  *logging.Logger
}

// NewMirror creates an empty mirror. sink may be nil until a host connects;
// SetSink attaches it later.
func NewMirror(sink CommandSink, log *logging.Logger) *Mirror {
	return &Mirror{
		npcs:    make(map[int]domain.NPCSnapshot),
		players: make(map[string]domain.PlayerSnapshot),
		sink:    sink,
		log:     log.Sub("world"),
	}
}

// SetSink replaces the command sink.
func (m *Mirror) SetSink(sink CommandSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
}

// ApplyUpdate merges a host-pushed batch into the mirror. Snapshots replace
// prior entries for the same entity; removal lists evict entries; events are
// appended in arrival order.
func (m *Mirror) ApplyUpdate(u domain.WorldUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, npc := range u.NPCs {
		m.npcs[npc.ID] = npc
	}
	for _, p := range u.Players {
		m.players[p.ID] = p
	}
	for _, id := range u.RemovedNPCs {
		delete(m.npcs, id)
	}
	for _, id := range u.RemovedPlayers {
		delete(m.players, id)
	}
	if len(u.Events) > 0 {
		m.events = append(m.events, u.Events...)
		if over := len(m.events) - maxRetainedEvents; over > 0 {
			m.events = append(m.events[:0:0], m.events[over:]...)
		}
	}

	m.log.Debug().
		Int("npcs", len(u.NPCs)).
		Int("players", len(u.Players)).
		Int("events", len(u.Events)).
		Msg("world update applied")
}

// NPC returns the latest snapshot for an NPC.
func (m *Mirror) NPC(id int) (domain.NPCSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.npcs[id]
	return n, ok
}

// Player returns the latest snapshot for a player.
func (m *Mirror) Player(id string) (domain.PlayerSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	return p, ok
}

// RecentEvents returns up to n of the most recent colony events,
// oldest first.
func (m *Mirror) RecentEvents(n int) []domain.WorldEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n > len(m.events) {
		n = len(m.events)
	}
	if n <= 0 {
		return nil
	}
	out := make([]domain.WorldEvent, n)
	copy(out, m.events[len(m.events)-n:])
	return out
}

// SetSaturation pins an NPC's saturation locally and tells the host.
func (m *Mirror) SetSaturation(npcID int, value float64) {
	m.mu.Lock()
	if npc, ok := m.npcs[npcID]; ok {
		npc.Saturation = value
		m.npcs[npcID] = npc
	}
	sink := m.sink
	m.mu.Unlock()
	if sink != nil {
		sink.SetSaturation(npcID, value)
	}
}

// HaltMovement tells the host to stop an NPC's pathing.
func (m *Mirror) HaltMovement(npcID int) {
	if sink := m.currentSink(); sink != nil {
		sink.HaltMovement(npcID)
	}
}

// ResumeMovement tells the host to release an NPC's pathing.
func (m *Mirror) ResumeMovement(npcID int) {
	if sink := m.currentSink(); sink != nil {
		sink.ResumeMovement(npcID)
	}
}

// LookAt tells the host to keep an NPC facing a player.
func (m *Mirror) LookAt(npcID int, playerID string) {
	if sink := m.currentSink(); sink != nil {
		sink.LookAt(npcID, playerID)
	}
}

// Notify sends a plain status line to a player.
func (m *Mirror) Notify(playerID, text string) {
	if sink := m.currentSink(); sink != nil {
		sink.Notify(playerID, text)
	}
}

func (m *Mirror) currentSink() CommandSink {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sink
}

// Package domain holds the shared data model for colonychat: sessions,
// world snapshots, and colony events.
package domain

import "time"

// EndReason records why a conversation session terminated.
type EndReason string

const (
	// ReasonCommand is an explicit end request from the player.
	ReasonCommand EndReason = "command"
	// ReasonExitWord is a configured farewell word spoken in chat.
	ReasonExitWord EndReason = "exit-word"
	// ReasonDistance means the player walked out of range.
	ReasonDistance EndReason = "distance"
	// ReasonPlayerGone means the player disconnected or left the world.
	ReasonPlayerGone EndReason = "player-gone"
	// ReasonNPCGone means the NPC despawned or died mid-conversation.
	ReasonNPCGone EndReason = "npc-gone"
)

// Session is one active conversation between a player and an NPC.
// The state manager owns the record; everything else holds a reference.
type Session struct {
	ID               string    `json:"id"`
	PlayerID         string    `json:"playerId"`
	NPCID            int       `json:"npcId"`
	CreatedAt        time.Time `json:"createdAt"`
	LastActive       time.Time `json:"lastActive"`
	FrozenSaturation float64   `json:"frozenSaturation"`
}

package world

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereallemon/colonychat/internal/domain"
	"github.com/thereallemon/colonychat/internal/logging"
)

type recordingSink struct {
	commands []string
}

func (s *recordingSink) SetSaturation(npcID int, value float64) {
	s.commands = append(s.commands, fmt.Sprintf("saturation %d %.1f", npcID, value))
}
func (s *recordingSink) HaltMovement(npcID int) {
	s.commands = append(s.commands, fmt.Sprintf("halt %d", npcID))
}
func (s *recordingSink) ResumeMovement(npcID int) {
	s.commands = append(s.commands, fmt.Sprintf("resume %d", npcID))
}
func (s *recordingSink) LookAt(npcID int, playerID string) {
	s.commands = append(s.commands, fmt.Sprintf("look %d %s", npcID, playerID))
}
func (s *recordingSink) Notify(playerID, text string) {
	s.commands = append(s.commands, fmt.Sprintf("notify %s %s", playerID, text))
}

func testMirror(sink CommandSink) *Mirror {
	return NewMirror(sink, logging.New(nil, "silent", "json"))
}

func TestMirror_ApplyUpdate_UpsertAndRemove(t *testing.T) {
	m := testMirror(nil)

	m.ApplyUpdate(domain.WorldUpdate{
		NPCs:    []domain.NPCSnapshot{{ID: 1, Name: "Greta", Saturation: 12}},
		Players: []domain.PlayerSnapshot{{ID: "p1", Name: "Lemon"}},
	})

	npc, ok := m.NPC(1)
	require.True(t, ok)
	assert.Equal(t, "Greta", npc.Name)
	_, ok = m.Player("p1")
	require.True(t, ok)

	// Later snapshot replaces the old one wholesale.
	m.ApplyUpdate(domain.WorldUpdate{
		NPCs: []domain.NPCSnapshot{{ID: 1, Name: "Greta", Saturation: 9}},
	})
	npc, _ = m.NPC(1)
	assert.Equal(t, 9.0, npc.Saturation)

	m.ApplyUpdate(domain.WorldUpdate{
		RemovedNPCs:    []int{1},
		RemovedPlayers: []string{"p1"},
	})
	_, ok = m.NPC(1)
	assert.False(t, ok)
	_, ok = m.Player("p1")
	assert.False(t, ok)
}

func TestMirror_RecentEvents_TailOldestFirst(t *testing.T) {
	m := testMirror(nil)

	var events []domain.WorldEvent
	for i := 0; i < 5; i++ {
		events = append(events, domain.WorldEvent{
			Kind: domain.EventGeneric,
			Name: fmt.Sprintf("event %d", i),
		})
	}
	m.ApplyUpdate(domain.WorldUpdate{Events: events})

	got := m.RecentEvents(3)
	require.Len(t, got, 3)
	assert.Equal(t, "event 2", got[0].Name)
	assert.Equal(t, "event 4", got[2].Name)

	assert.Len(t, m.RecentEvents(100), 5)
	assert.Nil(t, m.RecentEvents(0))
}

func TestMirror_EventRetentionBounded(t *testing.T) {
	m := testMirror(nil)

	for i := 0; i < maxRetainedEvents+10; i++ {
		m.ApplyUpdate(domain.WorldUpdate{Events: []domain.WorldEvent{{
			Kind: domain.EventGeneric,
			Name: fmt.Sprintf("event %d", i),
		}}})
	}

	got := m.RecentEvents(maxRetainedEvents + 10)
	require.Len(t, got, maxRetainedEvents)
	assert.Equal(t, "event 10", got[0].Name)
}

func TestMirror_CommandsForwardToSink(t *testing.T) {
	sink := &recordingSink{}
	m := testMirror(sink)
	m.ApplyUpdate(domain.WorldUpdate{
		NPCs: []domain.NPCSnapshot{{ID: 3, Saturation: 5}},
	})

	m.SetSaturation(3, 14.0)
	m.HaltMovement(3)
	m.ResumeMovement(3)
	m.LookAt(3, "p1")
	m.Notify("p1", "hi")

	assert.Equal(t, []string{
		"saturation 3 14.0",
		"halt 3",
		"resume 3",
		"look 3 p1",
		"notify p1 hi",
	}, sink.commands)

	// The local copy reflects the pinned value too.
	npc, _ := m.NPC(3)
	assert.Equal(t, 14.0, npc.Saturation)
}

func TestMirror_NilSinkIsSafe(t *testing.T) {
	m := testMirror(nil)
	m.SetSaturation(1, 10)
	m.HaltMovement(1)
	m.Notify("p1", "hello")

	sink := &recordingSink{}
	m.SetSink(sink)
	m.Notify("p1", "hello")
	assert.Len(t, sink.commands, 1)
}

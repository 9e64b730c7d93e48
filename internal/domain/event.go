package domain

// EventKind discriminates the WorldEvent variant.
type EventKind string

const (
	EventNPC      EventKind = "npc"
	EventBuilding EventKind = "building"
	EventGeneric  EventKind = "generic"
)

// WorldEvent is a tagged union of colony happenings the host reports.
// Kind selects which fields are meaningful: NPC events carry Subject (the
// NPC's name), building events carry Subject and Level, generic events
// carry only Name.
type WorldEvent struct {
	Kind    EventKind `json:"kind"`
	Name    string    `json:"name"`
	Subject string    `json:"subject,omitempty"`
	Level   int       `json:"level,omitempty"`
}

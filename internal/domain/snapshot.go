package domain

// Position is a point in world space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DistSqr returns the squared distance to another position. Callers compare
// against squared thresholds to avoid the square root.
func (p Position) DistSqr(o Position) float64 {
	dx := p.X - o.X
	dy := p.Y - o.Y
	dz := p.Z - o.Z
	return dx*dx + dy*dy + dz*dz
}

// NPCSnapshot is the host-reported view of a colony NPC.
type NPCSnapshot struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Job        string   `json:"job,omitempty"`
	ColonyName string   `json:"colonyName,omitempty"`
	Happiness  float64  `json:"happiness"`  // 0-10
	Saturation float64  `json:"saturation"` // 0-20, decays over time
	Skills     string   `json:"skills,omitempty"`
	Position   Position `json:"position"`
}

// PlayerSnapshot is the host-reported view of a connected player.
type PlayerSnapshot struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Position Position `json:"position"`
}

// WorldUpdate is a batch of host state pushed into the world mirror.
// Snapshots replace prior entries wholesale; removal lists evict them.
type WorldUpdate struct {
	NPCs           []NPCSnapshot    `json:"npcs,omitempty"`
	Players        []PlayerSnapshot `json:"players,omitempty"`
	RemovedNPCs    []int            `json:"removedNpcs,omitempty"`
	RemovedPlayers []string         `json:"removedPlayers,omitempty"`
	Events         []WorldEvent     `json:"events,omitempty"`
}

package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create npc memories",
		SQL: `
			CREATE TABLE npc_memories (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				npc_id      INTEGER NOT NULL,
				summary     TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_npc_memories_npc ON npc_memories (npc_id, id);
		`,
	},
}

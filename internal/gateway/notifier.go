package gateway

// The server doubles as the session notifier and the world command sink.
// Session output goes to the owning player's connection; world commands are
// broadcast to every connected game host. Dropped deliveries are logged and
// not retried: a disconnected player's session ends on the next tick anyway.

// Deliver sends one NPC line to a player's client.
func (s *Server) Deliver(playerID, text string) {
	c, ok := s.clients.Player(playerID)
	if !ok {
		s.log.Debug().Str("player", playerID).Msg("no connection for delivery")
		return
	}
	if err := c.SendEvent("conversation.message", MessagePayload{Text: text}, s.eventSeq.Add(1)); err != nil {
		s.log.Warn().Err(err).Str("player", playerID).Msg("delivery failed")
	}
}

// SyncState tells a player's client whether it is in a conversation.
func (s *Server) SyncState(playerID string, npcID int, active bool) {
	c, ok := s.clients.Player(playerID)
	if !ok {
		return
	}
	if err := c.SendEvent("conversation.state", StatePayload{NPCID: npcID, Active: active}, s.eventSeq.Add(1)); err != nil {
		s.log.Warn().Err(err).Str("player", playerID).Msg("state sync failed")
	}
}

// SetSaturation broadcasts a saturation write to game hosts.
func (s *Server) SetSaturation(npcID int, value float64) {
	s.sendCommand(WorldCommand{Op: "setSaturation", NPCID: npcID, Value: value})
}

// HaltMovement broadcasts a pathing stop to game hosts.
func (s *Server) HaltMovement(npcID int) {
	s.sendCommand(WorldCommand{Op: "haltMovement", NPCID: npcID})
}

// ResumeMovement broadcasts a pathing release to game hosts.
func (s *Server) ResumeMovement(npcID int) {
	s.sendCommand(WorldCommand{Op: "resumeMovement", NPCID: npcID})
}

// LookAt broadcasts a look-at target to game hosts.
func (s *Server) LookAt(npcID int, playerID string) {
	s.sendCommand(WorldCommand{Op: "lookAt", NPCID: npcID, PlayerID: playerID})
}

// Notify broadcasts a plain status line for a player to game hosts. Hosts
// render it as a system chat message.
func (s *Server) Notify(playerID, text string) {
	s.sendCommand(WorldCommand{Op: "notify", PlayerID: playerID, Text: text})
}

func (s *Server) sendCommand(cmd WorldCommand) {
	s.clients.BroadcastHosts("world.command", cmd, s.eventSeq.Add(1))
}

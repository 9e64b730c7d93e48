package gateway

import (
	"encoding/json"

	"github.com/thereallemon/colonychat/internal/domain"
)

// Frame types for the WebSocket protocol.
const (
	FrameTypeRequest  = "req"
	FrameTypeResponse = "res"
	FrameTypeEvent    = "event"
)

// Client modes. A game host pushes world updates and receives world
// commands; a player client exchanges conversation traffic.
const (
	ModePlayer = "player"
	ModeHost   = "host"
)

// Frame is the base envelope for all WebSocket messages.
// The Type field discriminates between request, response, and event frames.
type Frame struct {
	Type string `json:"type"`

	// Request fields
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`

	// Response fields
	OK      *bool           `json:"ok,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// Event fields
	Event string `json:"event,omitempty"`
	Seq   int64  `json:"seq,omitempty"`

	// Error (response only)
	Error *ErrorShape `json:"error,omitempty"`
}

// ErrorShape is the standard error format in response frames.
type ErrorShape struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// ConnectParams are sent by the client in the initial "connect" request.
type ConnectParams struct {
	MinProtocol int          `json:"minProtocol"`
	MaxProtocol int          `json:"maxProtocol"`
	Client      ClientInfo   `json:"client"`
	Auth        *ConnectAuth `json:"auth,omitempty"`
	UserAgent   string       `json:"userAgent,omitempty"`
}

// ClientInfo identifies the connecting client. For player connections the
// ID is the player's UUID in the game; host connections use a stable
// server identifier.
type ClientInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version"`
	Mode        string `json:"mode"` // "player" | "host"
}

// ConnectAuth carries credentials in the connect request.
type ConnectAuth struct {
	Token    string `json:"token,omitempty"`
	Password string `json:"password,omitempty"`
}

// HelloOK is the server's response payload after successful authentication.
type HelloOK struct {
	Protocol int        `json:"protocol"`
	Server   ServerInfo `json:"server"`
	Features Features   `json:"features"`
}

// ServerInfo identifies the gateway server.
type ServerInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	ConnID  string `json:"connId"`
}

// Features advertises available RPC methods and events.
type Features struct {
	Methods []string `json:"methods"`
	Events  []string `json:"events"`
}

// StartParams opens a conversation with an NPC.
type StartParams struct {
	NPCID int `json:"npcId"`
}

// MessageParams carries one player chat line.
type MessageParams struct {
	Text string `json:"text"`
}

// MessageResult reports whether the line was consumed by a conversation.
// Unhandled lines should be treated as ordinary chat by the host. Echo
// carries the player's line back so clients can render it in the transcript.
type MessageResult struct {
	Handled bool   `json:"handled"`
	Echo    string `json:"echo,omitempty"`
}

// EndResult reports whether a session was actually closed.
type EndResult struct {
	Ended bool `json:"ended"`
}

// StatePayload is the "conversation.state" event payload.
type StatePayload struct {
	NPCID  int  `json:"npcId"`
	Active bool `json:"active"`
}

// MessagePayload is the "conversation.message" event payload.
type MessagePayload struct {
	Text string `json:"text"`
}

// WorldUpdateParams wraps a host-pushed state batch.
type WorldUpdateParams struct {
	Update domain.WorldUpdate `json:"update"`
}

// WorldCommand is the "world.command" event payload sent to hosts.
type WorldCommand struct {
	Op       string  `json:"op"` // "setSaturation" | "haltMovement" | "resumeMovement" | "lookAt" | "notify"
	NPCID    int     `json:"npcId,omitempty"`
	PlayerID string  `json:"playerId,omitempty"`
	Value    float64 `json:"value,omitempty"`
	Text     string  `json:"text,omitempty"`
}

// NewRequest creates a request frame.
func NewRequest(id, method string, params any) (Frame, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Type:   FrameTypeRequest,
		ID:     id,
		Method: method,
		Params: raw,
	}, nil
}

// NewResponse creates a success response frame.
func NewResponse(id string, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	ok := true
	return Frame{
		Type:    FrameTypeResponse,
		ID:      id,
		OK:      &ok,
		Payload: raw,
	}, nil
}

// NewErrorResponse creates an error response frame.
func NewErrorResponse(id string, errShape ErrorShape) Frame {
	ok := false
	return Frame{
		Type:  FrameTypeResponse,
		ID:    id,
		OK:    &ok,
		Error: &errShape,
	}
}

// NewEvent creates an event frame.
func NewEvent(event string, payload any, seq int64) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Type:    FrameTypeEvent,
		Event:   event,
		Payload: raw,
		Seq:     seq,
	}, nil
}

// Protocol version supported by this server.
const ProtocolVersion = 1

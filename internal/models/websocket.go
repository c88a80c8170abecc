package models

// Server message types on the live update channel
const (
	MessageConnected = "connected"
	MessageError     = "error"
)

// ServerMessage is a control message sent to an observer connection.
// Ledger updates are sent as UpdateEvent values instead.
type ServerMessage struct {
	Type         string `json:"type"` // "connected", "error"
	SessionID    string `json:"sessionId,omitempty"`
	ConnectionID string `json:"connectionId,omitempty"`
	ErrorCode    string `json:"code,omitempty"`
	ErrorMessage string `json:"message,omitempty"`
}

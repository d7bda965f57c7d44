package gateway

import "github.com/FairyDevicesRD/ai.chat.kmp/internal/session"

// StateMessage is the snapshot pushed to UI clients.
type StateMessage struct {
	Type  string        `json:"type"`
	State session.State `json:"state"`
}

// ErrorResponse is the REST error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func newStateMessage(state session.State) StateMessage {
	return StateMessage{Type: "state", State: state}
}

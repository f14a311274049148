package ws

import "encoding/json"

// MessageType constants for the quiz WebSocket protocol.
const (
	// Client -> Server
	TypeAnswer           = "answer"
	TypeNext             = "next"
	TypeBack             = "back"
	TypeFinish           = "finish"
	TypeRetry            = "retry"
	TypeRedo             = "redo"
	TypeNewTopic         = "new_topic"
	TypeRevisionEnter    = "revision_enter"
	TypeRevisionNext     = "revision_next"
	TypeRevisionPrevious = "revision_previous"
	TypeRevisionExit     = "revision_exit"
	TypeRequestState     = "request_state"
	TypePing             = "ping"

	// Server -> Client
	TypeQuizState = "quiz_state"
	TypeError     = "error"
	TypePong      = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a message of the given type.
func NewMessage(msgType string, payload any) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	msg.Payload = raw
	return msg, nil
}

type AnswerPayload struct {
	QuestionID string `json:"question_id"`
	Selected   int    `json:"selected"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

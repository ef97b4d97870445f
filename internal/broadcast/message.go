package broadcast

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"spendsync/internal/core"
)

// ChannelName is the logical channel shared by every tab of the application.
const ChannelName = "expense_tracker_channel"

type MessageType string

const (
	TypeAdd           MessageType = "add"
	TypeDelete        MessageType = "delete"
	TypeProfileUpdate MessageType = "profile_update"
)

var (
	ErrUnknownType    = errors.New("unknown message type")
	ErrInvalidMessage = errors.New("invalid message")
)

// Message is a mutation event sent from one tab to all the others. It carries
// no version or causal token; receivers apply it as it comes.
type Message struct {
	Type    MessageType   `json:"type"`
	Expense *core.Expense `json:"expense,omitempty"`
	ID      string        `json:"id,omitempty"`
	Profile *core.Profile `json:"profile,omitempty"`

	// Origin and SentAt are informational. Receivers must work without them.
	Origin string    `json:"origin,omitempty"`
	SentAt time.Time `json:"sentAt"`
}

func NewAddMessage(origin string, e core.Expense) Message {
	return Message{Type: TypeAdd, Expense: &e, Origin: origin, SentAt: time.Now()}
}

func NewDeleteMessage(origin, id string) Message {
	return Message{Type: TypeDelete, ID: id, Origin: origin, SentAt: time.Now()}
}

func NewProfileMessage(origin string, p core.Profile) Message {
	return Message{Type: TypeProfileUpdate, Profile: &p, Origin: origin, SentAt: time.Now()}
}

// Validate checks that the payload required by the message type is present.
func (m Message) Validate() error {
	switch m.Type {
	case TypeAdd:
		if m.Expense == nil {
			return fmt.Errorf("%w: add without expense", ErrInvalidMessage)
		}
		if err := m.Expense.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
	case TypeDelete:
		if m.ID == "" {
			return fmt.Errorf("%w: delete without id", ErrInvalidMessage)
		}
	case TypeProfileUpdate:
		if m.Profile == nil {
			return fmt.Errorf("%w: profile_update without profile", ErrInvalidMessage)
		}
		if err := m.Profile.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownType, m.Type)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON decodes and validates a message.
func MessageFromJSON(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

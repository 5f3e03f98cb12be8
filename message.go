package eventchannel

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// MessageType discriminates inbound channel messages.
type MessageType string

const (
	// TypeAny is the wildcard registry key. Handlers registered under it
	// receive every inbound message regardless of type.
	TypeAny MessageType = "*"

	// TypeUnknown marks messages whose wire type is not part of the known
	// set. They are routed to wildcard handlers only; the original wire
	// type is preserved in Message.WireType.
	TypeUnknown MessageType = "unknown"

	TypeConnectionAck           MessageType = "connection_ack"
	TypeKeepAliveAck            MessageType = "keep_alive_ack"
	TypeNewMessage              MessageType = "new_message"
	TypeNotification            MessageType = "notification"
	TypeAppointmentProposal     MessageType = "appointment_proposal"
	TypeAppointmentStatusUpdate MessageType = "appointment_status_update"
	TypeNewOffer                MessageType = "new_offer"
)

func (t MessageType) Is(other MessageType) bool {
	return t == other
}

func (t MessageType) IsKnown() bool {
	switch t {
	case TypeConnectionAck, TypeKeepAliveAck, TypeNewMessage, TypeNotification,
		TypeAppointmentProposal, TypeAppointmentStatusUpdate, TypeNewOffer:
		return true
	}
	return false
}

// Payload is the closed set of per-type message payloads. Exactly one
// concrete shape exists per message type that carries data.
type Payload interface {
	payloadType() MessageType
}

// ChatMessagePayload is the payload of a new_message event.
type ChatMessagePayload struct {
	ID             int64  `json:"id"`
	ConversationID int64  `json:"conversation_id,omitempty"`
	SenderID       string `json:"sender_id,omitempty"`
	Text           string `json:"text,omitempty"`
}

func (ChatMessagePayload) payloadType() MessageType { return TypeNewMessage }

// NotificationPayload is the payload of a notification event.
type NotificationPayload struct {
	ID    int64  `json:"id"`
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
	Link  string `json:"link,omitempty"`
}

func (NotificationPayload) payloadType() MessageType { return TypeNotification }

// AppointmentPayload is shared by appointment_proposal and
// appointment_status_update events.
type AppointmentPayload struct {
	ID        int64     `json:"id"`
	RequestID int64     `json:"request_id,omitempty"`
	StartsAt  time.Time `json:"starts_at,omitempty"`
	Status    string    `json:"status,omitempty"`
}

func (AppointmentPayload) payloadType() MessageType { return TypeAppointmentProposal }

// OfferPayload is the payload of a new_offer event.
type OfferPayload struct {
	ID        int64  `json:"id"`
	RequestID int64  `json:"request_id,omitempty"`
	Amount    int64  `json:"amount,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

func (OfferPayload) payloadType() MessageType { return TypeNewOffer }

// Message is one parsed inbound channel event. Messages are transient:
// dispatched to handlers and not retained by the client.
type Message struct {
	Type MessageType
	// WireType keeps the raw discriminator for unknown variants.
	WireType string
	Status   string
	UserID   string
	MesterID string
	SentAt   time.Time
	// Payload holds the decoded per-type shape, nil when the event carried
	// no data field.
	Payload Payload
	// Raw preserves the undecoded data field for wildcard consumers.
	Raw json.RawMessage
}

func (m *Message) String() string {
	return fmt.Sprintf("Message{type=%s,status=%s,data=%s}", m.Type, m.Status, m.Raw)
}

// envelope mirrors the wire shape of an inbound frame.
type envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Status    string          `json:"status,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	MesterID  string          `json:"mester_id,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// parseMessage decodes one UTF-8 text frame into a Message. The type
// discriminator is mandatory; known types get their data field decoded into
// the matching payload shape, unrecognized types become the unknown variant
// with the raw data preserved.
func parseMessage(raw []byte) (*Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(ErrMalformedMessage, err.Error())
	}

	if env.Type == "" {
		return nil, errors.Wrap(ErrMalformedMessage, "missing type discriminator")
	}

	m := &Message{
		WireType: env.Type,
		Status:   env.Status,
		UserID:   env.UserID,
		MesterID: env.MesterID,
		SentAt:   env.Timestamp,
		Raw:      env.Data,
	}

	t := MessageType(env.Type)
	if !t.IsKnown() {
		m.Type = TypeUnknown
		return m, nil
	}
	m.Type = t

	if len(env.Data) == 0 {
		return m, nil
	}

	payload, err := decodePayload(t, env.Data)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedMessage, "bad %s payload: %s", t, err)
	}
	m.Payload = payload

	return m, nil
}

func decodePayload(t MessageType, data json.RawMessage) (Payload, error) {
	switch t {
	case TypeNewMessage:
		var p ChatMessagePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeNotification:
		var p NotificationPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeAppointmentProposal, TypeAppointmentStatusUpdate:
		var p AppointmentPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeNewOffer:
		var p OfferPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	}

	// connection_ack and keep_alive_ack carry no structured data.
	return nil, nil
}

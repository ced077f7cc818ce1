package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrMalformedFrame is returned when a frame is not a JSON envelope.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrUnknownEvent is returned for envelopes naming an unsupported event.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrInvalidPayload is returned when a payload fails to decode or
	// validate.
	ErrInvalidPayload = errors.New("invalid payload")
)

// MaxRoomIDLength bounds room identifiers accepted on the wire. Generated
// identifiers must not be longer.
const MaxRoomIDLength = 64

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// RegisterValidation only fails on an empty tag name
	_ = v.RegisterValidation("roomid", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxRoomIDLength
	})
	return v
}

// Decode parses a raw frame into an Envelope.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event name", ErrMalformedFrame)
	}
	return env, nil
}

// DecodePayload unmarshals the envelope payload into v and validates it.
func DecodePayload(env Envelope, v any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: %s: missing data", ErrInvalidPayload, env.Event)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.Event, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.Event, err)
	}
	return nil
}

// Encode marshals an outbound frame.
func Encode(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return payload, nil
}

// NoticeText renders the human readable text of a membership notification.
func NoticeText(kind NotificationType, username string) string {
	switch kind {
	case NotificationCreate:
		return "Private room created. Only room members can see messages here."
	case NotificationJoin:
		return fmt.Sprintf("%s has joined the room", username)
	case NotificationLeave:
		return fmt.Sprintf("%s has left the room", username)
	case NotificationDisconnect:
		return fmt.Sprintf("%s has disconnected", username)
	default:
		return ""
	}
}

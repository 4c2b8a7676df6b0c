package types

import (
	"fmt"
	"strings"
)

// ClientMessageType defines the kind of message a client can send.
type ClientMessageType string

const (
	// MessageUserSpeech carries a recognized user utterance.
	MessageUserSpeech ClientMessageType = "user_speech"
)

// ClientMessage is a single inbound message on the client-facing surface.
type ClientMessage struct {
	// Type indicates the kind of message.
	Type ClientMessageType `json:"type"`

	// Transcript is the recognized utterance text.
	Transcript string `json:"transcript"`
}

// Validate checks that the message is well formed.
func (m *ClientMessage) Validate() error {
	if m.Type != MessageUserSpeech {
		return fmt.Errorf("unknown client message type %q", m.Type)
	}
	if strings.TrimSpace(m.Transcript) == "" {
		return fmt.Errorf("empty transcript")
	}
	return nil
}

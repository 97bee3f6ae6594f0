package domain

import "time"

// ConversationInfo resume una conversacion inferida a partir de sus mensajes.
type ConversationInfo struct {
	ConversationID string    `json:"conversation_id"`
	MessageCount   int       `json:"message_count"`
	LastMessage    string    `json:"last_message"`
	LastMessageAt  time.Time `json:"last_message_at"`
}

// Package chat provides a unified interface for chat frontends and the
// rendering of pipeline results into chat messages.
package chat

import (
	"context"
)

// Message represents a normalized chat message from any frontend
type Message struct {
	ID         string
	ChatID     string
	SenderID   int64
	SenderName string
	Text       string
	Raw        any // underlying library message struct
}

// Frontend defines the unified interface for all chat integrations
type Frontend interface {
	// Start initializes the chat frontend and begins listening for updates.
	// It blocks until the context is cancelled.
	Start(ctx context.Context) error

	// SendText sends a text message to the specified chat and returns the
	// sent message ID
	SendText(ctx context.Context, chatID string, text string) (string, error)

	// EditMessage edits an existing message by ID
	EditMessage(ctx context.Context, chatID, messageID, newText string) error
}

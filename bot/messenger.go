package bot

import (
	"context"

	"eatwhat-bot/models"
)

// Messenger delivers replies back into the chat. replyTo is the id of the
// message being answered; empty means no quote.
type Messenger interface {
	SendGroup(ctx context.Context, groupID, replyTo, text string) error
	SendPrivate(ctx context.Context, userID, replyTo, text string) error
}

// EventHandler consumes inbound events from a transport.
type EventHandler func(ctx context.Context, ev models.Event)

package model

import "time"

// Ticket is one support channel, keyed by its channel ID.
// OwnerID is the user who opened it and never changes. HandlerID is the
// member currently responsible; empty until someone accepts, overwritten
// by accept and transfer, never cleared.
type Ticket struct {
	ChannelID  string    `json:"channel_id"`
	GuildID    string    `json:"guild_id"`
	OwnerID    string    `json:"owner_id"`
	HandlerID  string    `json:"handler_id,omitempty"`
	CategoryID string    `json:"category_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Claimed reports whether a handler has taken the ticket.
func (t *Ticket) Claimed() bool {
	return t.HandlerID != ""
}

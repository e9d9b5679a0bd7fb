package models

import "time"

// DefaultCustomerName is used when a channel does not provide a display name.
const DefaultCustomerName = "New Customer"

// Customer is the canonical identity of a contact across channels. A channel
// identifier (wa_id or ig_id) maps to exactly one customer; the database
// enforces this with unique indexes.
type Customer struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	WhatsAppID      string    `json:"wa_id,omitempty" db:"wa_id"`
	InstagramID     string    `json:"ig_id,omitempty" db:"ig_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	LastInteraction time.Time `json:"last_interaction" db:"last_interaction"`
}

// ChannelID returns the identifier slot for the given channel.
func (c *Customer) ChannelID(channel Channel) string {
	if channel == ChannelWhatsApp {
		return c.WhatsAppID
	}
	return c.InstagramID
}

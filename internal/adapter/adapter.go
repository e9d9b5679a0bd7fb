// Package adapter normalizes raw Meta webhook payloads into IncomingEvents.
// It is the only place that touches the provider's loosely-structured wire
// format; everything downstream works with strongly-typed events.
package adapter

import (
	"inboxd/internal/models"
)

// ExtractEvents walks one webhook delivery and returns its normalized events
// in payload order. A single Instagram entry may yield both DM and comment
// events. Malformed or absent arrays at any nesting level yield zero events
// from that branch; events missing a sender id or text are dropped.
func ExtractEvents(payload *models.MetaWebhookPayload) []models.IncomingEvent {
	if payload == nil {
		return nil
	}

	switch payload.Object {
	case models.ObjectInstagram:
		return extractInstagram(payload.Entry)
	case models.ObjectWhatsApp:
		return extractWhatsApp(payload.Entry)
	}
	return nil
}

func extractInstagram(entries []models.WebhookEntry) []models.IncomingEvent {
	var events []models.IncomingEvent

	for _, entry := range entries {
		for _, msg := range entry.Messaging {
			if msg.Message == nil {
				continue
			}
			// Echoes are the business's own outbound messages delivered
			// back as inbound; they are not customer messages.
			if msg.Message.IsEcho {
				continue
			}
			if msg.Sender.ID == "" || msg.Message.Text == "" {
				continue
			}
			events = append(events, models.IncomingEvent{
				Channel:       models.ChannelInstagram,
				Kind:          models.ThreadDM,
				SenderID:      msg.Sender.ID,
				Text:          msg.Message.Text,
				ProviderMsgID: msg.Message.MID,
			})
		}

		for _, change := range entry.Changes {
			if change.Field != models.ChangeFieldComments {
				continue
			}
			c := change.Value
			if c.From == nil || c.From.ID == "" || c.Text == "" {
				continue
			}
			event := models.IncomingEvent{
				Channel:       models.ChannelInstagram,
				Kind:          models.ThreadComment,
				SenderID:      c.From.ID,
				SenderName:    c.From.Username,
				Text:          c.Text,
				ProviderMsgID: c.ID,
				CommentID:     c.ID,
			}
			if c.Media != nil {
				event.PostID = c.Media.ID
			}
			events = append(events, event)
		}
	}

	return events
}

func extractWhatsApp(entries []models.WebhookEntry) []models.IncomingEvent {
	var events []models.IncomingEvent

	for _, entry := range entries {
		for _, change := range entry.Changes {
			value := change.Value
			if len(value.Messages) == 0 {
				continue
			}

			var contact *models.WhatsAppContact
			if len(value.Contacts) > 0 {
				contact = &value.Contacts[0]
			}

			for _, msg := range value.Messages {
				senderID := msg.From
				if contact != nil && contact.WaID != "" {
					senderID = contact.WaID
				}
				if senderID == "" {
					continue
				}

				text := models.MediaPlaceholder
				if msg.Text != nil && msg.Text.Body != "" {
					text = msg.Text.Body
				}

				event := models.IncomingEvent{
					Channel:       models.ChannelWhatsApp,
					Kind:          models.ThreadDM,
					SenderID:      senderID,
					Text:          text,
					ProviderMsgID: msg.ID,
				}
				if contact != nil && contact.Profile != nil {
					event.SenderName = contact.Profile.Name
				}
				events = append(events, event)
			}
		}
	}

	return events
}

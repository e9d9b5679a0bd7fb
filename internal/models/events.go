package models

type Channel string

const (
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelInstagram Channel = "instagram"
)

type ThreadKind string

const (
	ThreadDM      ThreadKind = "dm"
	ThreadComment ThreadKind = "comment"
)

// MediaPlaceholder replaces the body of inbound messages that carry no text.
const MediaPlaceholder = "[Media]"

// IncomingEvent is the normalized form of one inbound provider event. Raw
// webhook payloads are validated at the adapter boundary; everything
// downstream operates on this type only.
type IncomingEvent struct {
	Channel       Channel
	Kind          ThreadKind
	SenderID      string
	SenderName    string
	Text          string
	ProviderMsgID string
	// CommentID is the provider's own comment identifier, set only for
	// comment events. It correlates repeated deliveries to one thread.
	CommentID string
	// PostID is the media/post the comment was left on, when known.
	PostID string
}

package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"inboxd/internal/metrics"
	"inboxd/internal/models"
)

// AutoResponder answers public comments that mention a configured keyword:
// a public reply under the comment plus, when configured, a private DM to
// the commenter. Its reply texts are registered with the loop guard so the
// provider echoing them back does not start a feedback loop.
type AutoResponder struct {
	cfg    models.AutoResponderConfig
	sender MessageSender
	logger *logrus.Logger
}

func NewAutoResponder(cfg models.AutoResponderConfig, sender MessageSender, guard *LoopGuard, logger *logrus.Logger) *AutoResponder {
	if cfg.Enabled {
		guard.Register(cfg.CommentReply)
		guard.Register(cfg.DMReply)
	}
	return &AutoResponder{cfg: cfg, sender: sender, logger: logger}
}

// Matches reports whether the comment text triggers the responder.
func (a *AutoResponder) Matches(text string) bool {
	if !a.cfg.Enabled {
		return false
	}
	lowered := strings.ToLower(text)
	for _, keyword := range a.cfg.Keywords {
		if keyword != "" && strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// HandleComment sends the configured replies for a matching comment event.
// Failures are logged and swallowed: the inbound message is already stored
// and an agent can follow up manually.
func (a *AutoResponder) HandleComment(ctx context.Context, event models.IncomingEvent) {
	if !a.Matches(event.Text) {
		return
	}

	log := a.logger.WithFields(logrus.Fields{
		LogFieldCommentID:  event.CommentID,
		LogFieldCustomerID: event.SenderID,
	})

	if _, err := a.sender.ReplyToComment(ctx, event.CommentID, a.cfg.CommentReply); err != nil {
		metrics.IncrementCounter("autoresponder_comment_reply_failed")
		log.WithError(err).Warn("Auto-responder comment reply failed")
	} else {
		metrics.IncrementCounter("autoresponder_comment_replies")
		log.Info("Auto-responder replied to comment")
	}

	if a.cfg.DMReply == "" {
		return
	}
	if _, err := a.sender.SendDirectMessage(ctx, event.SenderID, a.cfg.DMReply); err != nil {
		metrics.IncrementCounter("autoresponder_dm_failed")
		log.WithError(err).Warn("Auto-responder DM failed")
	} else {
		metrics.IncrementCounter("autoresponder_dms")
	}
}

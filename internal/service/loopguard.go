package service

import (
	"strings"
	"sync"
)

// LoopGuard drops inbound events whose text matches a known automated reply.
// Webhook providers deliver the business's own auto-responses back as inbound
// messages; without this filter an auto-responder would answer itself forever.
type LoopGuard struct {
	mu         sync.RWMutex
	signatures []string
}

// NewLoopGuard builds a guard over the configured signatures. Empty
// signatures are ignored.
func NewLoopGuard(signatures []string) *LoopGuard {
	g := &LoopGuard{}
	for _, s := range signatures {
		g.Register(s)
	}
	return g
}

// Register adds a signature at runtime. The auto-responder registers its own
// reply texts here so its output is recognized on the way back in.
func (g *LoopGuard) Register(signature string) {
	if signature == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, existing := range g.signatures {
		if existing == signature {
			return
		}
	}
	g.signatures = append(g.signatures, signature)
}

// IsAutoReply reports whether text matches a registered signature exactly or
// by prefix. Prefix matching covers replies that get personalized with a
// trailing name or emoji.
func (g *LoopGuard) IsAutoReply(text string) bool {
	if text == "" {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, s := range g.signatures {
		if text == s || strings.HasPrefix(text, s) {
			return true
		}
	}
	return false
}

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoopGuard_ExactMatch(t *testing.T) {
	guard := NewLoopGuard([]string{"Thanks for reaching out!"})

	assert.True(t, guard.IsAutoReply("Thanks for reaching out!"))
	assert.False(t, guard.IsAutoReply("Thanks"))
	assert.False(t, guard.IsAutoReply("hello"))
}

func TestLoopGuard_PrefixMatch(t *testing.T) {
	guard := NewLoopGuard([]string{"Thanks for your interest"})

	assert.True(t, guard.IsAutoReply("Thanks for your interest, Maria!"))
	assert.False(t, guard.IsAutoReply("Many thanks for your interest"))
}

func TestLoopGuard_EmptyText(t *testing.T) {
	guard := NewLoopGuard([]string{"auto reply"})

	assert.False(t, guard.IsAutoReply(""))
}

func TestLoopGuard_EmptySignaturesIgnored(t *testing.T) {
	guard := NewLoopGuard([]string{"", "real signature"})

	// An empty signature would prefix-match everything.
	assert.False(t, guard.IsAutoReply("any customer message"))
	assert.True(t, guard.IsAutoReply("real signature"))
}

func TestLoopGuard_RegisterAtRuntime(t *testing.T) {
	guard := NewLoopGuard(nil)
	assert.False(t, guard.IsAutoReply("new auto reply"))

	guard.Register("new auto reply")
	assert.True(t, guard.IsAutoReply("new auto reply"))

	// Duplicate registration is a no-op.
	guard.Register("new auto reply")
	assert.True(t, guard.IsAutoReply("new auto reply"))
}

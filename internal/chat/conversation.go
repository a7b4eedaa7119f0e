// Package chat keeps a conversational assistant transcript for one session.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"livecode/internal/clock"
	"livecode/internal/logging"
	"livecode/internal/retry"
	"livecode/internal/types"

	"github.com/google/uuid"
)

var (
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("conversation closed")
	// ErrEmptyMessage is returned when Send is given only whitespace.
	ErrEmptyMessage = errors.New("message is empty")
)

// FallbackReply replaces the assistant's answer when every attempt failed.
const FallbackReply = "Sorry, the assistant could not be reached. Please try again in a moment."

const systemPrompt = `You are a concise programming assistant inside a code editor.
Answer questions about the user's code and programming in general. Use short paragraphs and code blocks where helpful.`

// maxHistory bounds how many earlier messages are replayed to the model.
const maxHistory = 20

// Role identifies who wrote a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry.
type Message struct {
	Role    Role
	Content string
	At      time.Time
	// Fallback marks an assistant message standing in for a failed call.
	Fallback bool
}

// Conversation is an explicitly owned transcript. Create one per session and
// Close it when the session ends.
type Conversation struct {
	id     string
	client types.LLMClient
	clock  clock.Clock
	policy retry.Policy

	mu       sync.Mutex
	messages []Message
	closed   bool
}

// NewConversation starts an empty conversation.
func NewConversation(client types.LLMClient, clk clock.Clock, policy retry.Policy) *Conversation {
	if clk == nil {
		clk = clock.Real()
	}
	return &Conversation{
		id:     uuid.NewString(),
		client: client,
		clock:  clk,
		policy: policy,
	}
}

// ID returns the conversation id.
func (c *Conversation) ID() string { return c.id }

// Send appends text as a user message, asks the assistant and appends its
// reply. Exhausted retries produce a fallback reply rather than an error.
func (c *Conversation) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Message{}, ErrClosed
	}
	pending := len(c.messages)
	c.messages = append(c.messages, Message{Role: RoleUser, Content: text, At: c.clock.Now()})
	prompt := c.promptLocked()
	c.mu.Unlock()

	reply, attempts, err := retry.Do(ctx, c.clock, c.policy, "chat", func(ctx context.Context, attempt int) (string, error) {
		return c.client.CompleteWithSystem(ctx, systemPrompt, prompt)
	})

	msg := Message{Role: RoleAssistant, Content: reply}
	switch {
	case errors.Is(err, retry.ErrExhausted):
		logging.Get(logging.CategoryChat).With("conversation", c.id).Warn("assistant unavailable after %d attempts: %v", attempts, err)
		msg.Content = FallbackReply
		msg.Fallback = true
	case err != nil:
		c.dropUnanswered(pending)
		return Message{}, fmt.Errorf("chat: %w", err)
	default:
		logging.ChatDebug("reply %d bytes after %d attempt(s)", len(reply), attempts)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Message{}, ErrClosed
	}
	msg.At = c.clock.Now()
	c.messages = append(c.messages, msg)
	return msg, nil
}

// dropUnanswered removes the user message at index i when a send is
// abandoned, so the transcript never ends on a turn without a reply.
func (c *Conversation) dropUnanswered(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || i >= len(c.messages) || c.messages[i].Role != RoleUser {
		return
	}
	c.messages = append(c.messages[:i], c.messages[i+1:]...)
}

// promptLocked renders recent history, skipping fallback placeholders.
func (c *Conversation) promptLocked() string {
	history := c.messages
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}

	var b strings.Builder
	for _, m := range history {
		if m.Fallback {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n\n", m.Role, m.Content)
	}
	b.WriteString("assistant:")
	return b.String()
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Close discards the transcript. Later sends fail with ErrClosed.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.messages = nil
	logging.Chat("conversation %s closed", c.id)
}

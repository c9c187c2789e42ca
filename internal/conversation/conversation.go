// Package conversation normalizes an office-hours ticket and its chat
// follow-ups into the turn sequence the rest of the pipeline consumes.
package conversation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// RoleStudent is the role attributed to every ticket and chat turn. The
// office-hours intake only carries student text; staff replies arrive
// through a different surface.
const RoleStudent = "student"

// Turn is a single utterance in a conversation. Document references an
// attachment that still needs OCR expansion; it is nil for office-hours
// turns, which never carry attachments.
type Turn struct {
	Role     string  `json:"user_role"`
	Text     string  `json:"text"`
	Document *string `json:"document"`
}

// Conversation is an ordered turn sequence. After building it always has at
// least one turn: the synthesized ticket turn, followed by chat follow-ups
// in chronological order.
type Conversation []Turn

// Ticket holds the raw fields of one office-hours request. All fields are
// optional; missing fields render as empty strings.
type Ticket struct {
	Assignment  string   `json:"assignment"`
	Question    string   `json:"question"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Subcategory string   `json:"subcategory"`
	Chat        []string `json:"chat"`
}

// Expander is the OCR/expansion collaborator. It receives the draft
// conversation plus a thread title and returns the final conversation; it
// may rewrite turn text (for example expanding image references). Its output
// is used verbatim.
type Expander interface {
	Expand(ctx context.Context, threadTitle string, draft Conversation) (Conversation, error)
}

// Builder turns tickets into expanded conversations.
type Builder struct {
	expander Expander
	logger   *zap.Logger
}

// NewBuilder creates a conversation builder backed by the given expander.
func NewBuilder(expander Expander, logger *zap.Logger) *Builder {
	return &Builder{
		expander: expander,
		logger:   logger,
	}
}

// BuildDraft synthesizes the pre-expansion conversation: one turn for the
// ticket fields followed by one turn per non-blank chat entry, in input
// order. Blank chat entries are dropped so the model never sees empty turns.
func BuildDraft(t Ticket) Conversation {
	initial := fmt.Sprintf("Assignment: %s\nQuestion: %s\nDescription: %s",
		t.Assignment, t.Question, t.Description)

	draft := Conversation{{
		Role:     RoleStudent,
		Text:     initial,
		Document: nil,
	}}

	for _, entry := range t.Chat {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		draft = append(draft, Turn{
			Role:     RoleStudent,
			Text:     entry,
			Document: nil,
		})
	}

	return draft
}

// ThreadTitle combines the assignment and question fields into the title
// passed to the expansion collaborator.
func ThreadTitle(t Ticket) string {
	return fmt.Sprintf("%s — %s", t.Assignment, t.Question)
}

// Build synthesizes the draft conversation and runs it through the
// expansion collaborator. The returned conversation always has at least one
// turn; an expander that returns fewer violates its contract.
func (b *Builder) Build(ctx context.Context, t Ticket) (Conversation, error) {
	draft := BuildDraft(t)

	b.logger.Debug("Built draft conversation",
		zap.Int("turns", len(draft)),
		zap.Int("chat_entries", len(t.Chat)),
	)

	processed, err := b.expander.Expand(ctx, ThreadTitle(t), draft)
	if err != nil {
		return nil, fmt.Errorf("conversation expansion failed: %w", err)
	}

	if len(processed) == 0 {
		return nil, fmt.Errorf("conversation expansion returned no turns for %d-turn draft", len(draft))
	}

	b.logger.Info("Conversation built",
		zap.Int("draft_turns", len(draft)),
		zap.Int("processed_turns", len(processed)),
	)

	return processed, nil
}

// Last returns the most recent turn. Callers must ensure the conversation
// is non-empty, which Build guarantees.
func (c Conversation) Last() Turn {
	return c[len(c)-1]
}

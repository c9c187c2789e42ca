// Package prompts builds the prompt text for every generation step. Each
// supported course gets its own Set so course framing travels with the
// request instead of living in process-wide state.
package prompts

import (
	"fmt"
	"strings"

	"github.com/your-org/oh-assistant/internal/conversation"
	"github.com/your-org/oh-assistant/internal/manual"
	"github.com/your-org/oh-assistant/internal/search"
)

// Set is the per-course prompt family. It is resolved once per request and
// passed explicitly through the pipeline.
type Set struct {
	Course  string
	persona string
}

const (
	ds100Persona = "You are a teaching assistant for Data 100, the upper-division data science course. " +
		"Guide students toward the answer; never hand over assignment solutions directly."
	ds8Persona = "You are a teaching assistant for Data 8, the introductory data science course. " +
		"Keep explanations beginner-friendly and never hand over assignment solutions directly."
	cs61aPersona = "You are a teaching assistant for CS 61A, the introductory computer science course. " +
		"Explain program structure and interpretation concepts; never hand over assignment solutions directly."
)

// ForCourse resolves the prompt set for a course identifier. The match is a
// substring check so deployment-specific suffixes ("ds100_miloh") resolve to
// their base course.
func ForCourse(course string) (Set, error) {
	switch {
	case strings.Contains(course, "ds100"):
		return Set{Course: "ds100", persona: ds100Persona}, nil
	case strings.Contains(course, "ds8"):
		return Set{Course: "ds8", persona: ds8Persona}, nil
	case strings.Contains(course, "cs61a"):
		return Set{Course: "cs61a", persona: cs61aPersona}, nil
	default:
		return Set{}, fmt.Errorf("unsupported course: %s", course)
	}
}

func writeTurns(b *strings.Builder, conv conversation.Conversation) {
	for i, turn := range conv {
		fmt.Fprintf(b, "Turn %d (%s): %s\n\n", i+1, turn.Role, turn.Text)
	}
}

func writeQAPairs(b *strings.Builder, pairs []search.QAPair) {
	if len(pairs) == 0 {
		return
	}
	b.WriteString("--- Previously Answered Questions ---\n")
	for i, pair := range pairs {
		fmt.Fprintf(b, "Q%d: %s\nA%d: %s\n\n", i+1, pair.Question, i+1, pair.Answer)
	}
}

func writeHybridDocs(b *strings.Builder, result *search.HybridResult) {
	if result == nil || len(result.Docs) == 0 {
		return
	}
	b.WriteString("--- Course Material Excerpts ---\n")
	for i, doc := range result.Docs {
		fmt.Fprintf(b, "Excerpt %d [%s]: %s\n\n", i+1, doc.ID, doc.Content)
	}
}

func writeManualDocs(b *strings.Builder, result *manual.Result) {
	if result == nil || len(result.Documents) == 0 {
		return
	}
	b.WriteString("--- Curated Materials ---\n")
	for i, doc := range result.Documents {
		fmt.Fprintf(b, "Document %d [%s]: %s\n\n", i+1, doc.DocID, doc.Content)
	}
}

// SummarizeConversation builds the rolling-summary prompt. The caller passes
// every turn except the most recent; an empty slice is valid and produces a
// prompt with no turns.
func (s Set) SummarizeConversation(turns conversation.Conversation) string {
	var b strings.Builder
	b.WriteString("Condense the student conversation below into a single search query ")
	b.WriteString("capturing what the student is asking about. Reply with the query only.\n\n")
	writeTurns(&b, turns)
	b.WriteString("Search query:")
	return b.String()
}

// ChooseProblemPath builds the manual-selection prompt. The reply contract
// is a single problem/subcategory/doc-id path.
func (s Set) ChooseProblemPath(problemList []string, subcategory, questionInfo string) string {
	var b strings.Builder
	b.WriteString(s.persona)
	b.WriteString("\n\nA student needs help with one of the following problems:\n")
	for _, problem := range problemList {
		fmt.Fprintf(&b, "- %s\n", problem)
	}
	if subcategory != "" {
		fmt.Fprintf(&b, "\nThe student indicated the subcategory: %s\n", subcategory)
	}
	fmt.Fprintf(&b, "\nQuestion summary: %s\n\n", questionInfo)
	b.WriteString("Pick the single most relevant document. ")
	b.WriteString("Reply with exactly one path of the form problem/subcategory/doc-id and nothing else.")
	return b.String()
}

// AssignmentDraft builds the first-stage assignment prompt from the
// conversation, the answered-QA matches, and the curated materials.
func (s Set) AssignmentDraft(conv conversation.Conversation, qaPairs []search.QAPair, manualDocs *manual.Result) string {
	var b strings.Builder
	b.WriteString(s.persona)
	b.WriteString("\n\nDraft an answer to the student's assignment question below. ")
	b.WriteString("Use the previously answered questions and curated materials for grounding.\n\n")
	writeTurns(&b, conv)
	writeQAPairs(&b, qaPairs)
	writeManualDocs(&b, manualDocs)
	b.WriteString("Draft answer:")
	return b.String()
}

// AssignmentRefine builds the second-stage assignment prompt. It consumes
// only the conversation and the first-stage draft; retrieval results never
// reach this stage directly.
func (s Set) AssignmentRefine(conv conversation.Conversation, draft string) string {
	var b strings.Builder
	b.WriteString(s.persona)
	b.WriteString("\n\nBelow is a student conversation and a draft answer. ")
	b.WriteString("Rewrite the draft into the final reply: keep it encouraging, remove any solution ")
	b.WriteString("steps the student has not reached yet, and address the most recent turn directly.\n\n")
	writeTurns(&b, conv)
	fmt.Fprintf(&b, "--- Draft Answer ---\n%s\n\n", draft)
	b.WriteString("Final answer:")
	return b.String()
}

// Content builds the single-stage content prompt.
func (s Set) Content(conv conversation.Conversation, qaPairs []search.QAPair, hybridDocs *search.HybridResult) string {
	var b strings.Builder
	b.WriteString(s.persona)
	b.WriteString("\n\nAnswer the student's course content question below using the retrieved material.\n\n")
	writeTurns(&b, conv)
	writeQAPairs(&b, qaPairs)
	writeHybridDocs(&b, hybridDocs)
	b.WriteString("Answer:")
	return b.String()
}

// Logistics builds the single-stage logistics prompt.
func (s Set) Logistics(conv conversation.Conversation, qaPairs []search.QAPair, hybridDocs *search.HybridResult) string {
	var b strings.Builder
	b.WriteString(s.persona)
	b.WriteString("\n\nAnswer the student's course logistics question below. ")
	b.WriteString("Only state policies supported by the retrieved material; do not guess dates or rules.\n\n")
	writeTurns(&b, conv)
	writeQAPairs(&b, qaPairs)
	writeHybridDocs(&b, hybridDocs)
	b.WriteString("Answer:")
	return b.String()
}

// Worksheet builds the single-stage worksheet prompt, the only one that
// consumes both hybrid and manual retrieval results.
func (s Set) Worksheet(conv conversation.Conversation, qaPairs []search.QAPair, hybridDocs *search.HybridResult, manualDocs *manual.Result) string {
	var b strings.Builder
	b.WriteString(s.persona)
	b.WriteString("\n\nHelp the student with the worksheet problem below. ")
	b.WriteString("Ground your answer in the retrieved excerpts and curated materials.\n\n")
	writeTurns(&b, conv)
	writeQAPairs(&b, qaPairs)
	writeHybridDocs(&b, hybridDocs)
	writeManualDocs(&b, manualDocs)
	b.WriteString("Answer:")
	return b.String()
}

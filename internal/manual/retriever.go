// Package manual implements curated-document retrieval: a mapping-driven
// lookup where the generation collaborator picks one problem path out of the
// configured candidates and the referenced documents are fetched from the
// document store.
package manual

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/your-org/oh-assistant/internal/conversation"
	"github.com/your-org/oh-assistant/internal/docstore"
	"go.uber.org/zap"
)

// ErrCategoryNotMapped is returned when the category has no configured
// problem list.
var ErrCategoryNotMapped = errors.New("category has no problem list mapping")

// Generator runs one prompt through the generation collaborator.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DocumentStore fetches curated documents by id.
type DocumentStore interface {
	GetDocument(docID string) (docstore.Document, error)
}

// PromptFunc builds the choose-problem-path prompt from the candidate
// problem list, the optional subcategory, and the question summary.
type PromptFunc func(problemList []string, subcategory, questionInfo string) string

// Request carries the inputs for one manual retrieval.
type Request struct {
	Category           string
	CategoryMapping    map[string][]string
	Subcategory        string
	SubcategoryMapping map[string][]string
	QuestionInfo       string
	Prompt             PromptFunc
}

// Result is the manual retrieval triple: the candidate problem list, the
// path the collaborator selected, and the fetched documents.
type Result struct {
	ProblemList []string            `json:"problem_list"`
	SelectedDoc string              `json:"selected_doc"`
	Documents   []docstore.Document `json:"documents"`
}

// Selection is the parsed collaborator reply. The reply contract is a
// three-segment path: problem, subcategory, document id.
type Selection struct {
	Problem     string
	Subcategory string
	DocID       string
	Path        string
}

// SelectionError reports a collaborator reply that does not destructure
// into the three expected fields. It is a contract violation that aborts
// the request.
type SelectionError struct {
	Raw    string
	Reason string
}

func (e SelectionError) Error() string {
	return fmt.Sprintf("malformed problem path selection %q: %s", e.Raw, e.Reason)
}

// ParseSelection validates and splits a collaborator reply.
func ParseSelection(raw string) (Selection, error) {
	trimmed := strings.Trim(strings.TrimSpace(raw), "`\"")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 3 {
		return Selection{}, SelectionError{
			Raw:    raw,
			Reason: fmt.Sprintf("expected exactly 3 fields, got %d", len(parts)),
		}
	}

	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return Selection{}, SelectionError{Raw: raw, Reason: fmt.Sprintf("field %d is empty", i+1)}
		}
	}

	return Selection{
		Problem:     parts[0],
		Subcategory: parts[1],
		DocID:       parts[2],
		Path:        strings.Join(parts, "/"),
	}, nil
}

var newlineRuns = regexp.MustCompile(`\n+`)

// BuildQuestionInfo assembles the free-text summary handed to the
// choose-problem-path prompt. The context excerpt is the last turn alone
// for short conversations, or the first and last turns concatenated for
// longer threads, skipping the noisy middle. Newline runs collapse to
// single spaces.
func BuildQuestionInfo(category string, t conversation.Ticket, conv conversation.Conversation) string {
	var excerpt string
	switch {
	case len(conv) == 0:
		excerpt = ""
	case len(conv) <= 2:
		excerpt = conv.Last().Text
	default:
		excerpt = conv[0].Text + conv.Last().Text
	}

	info := fmt.Sprintf("%s %s %s %s %s", category, t.Assignment, t.Question, t.Description, excerpt)
	return newlineRuns.ReplaceAllString(info, " ")
}

// Retriever performs manual retrievals.
type Retriever struct {
	generator Generator
	store     DocumentStore
	logger    *zap.Logger
}

// NewRetriever creates a manual retriever.
func NewRetriever(generator Generator, store DocumentStore, logger *zap.Logger) *Retriever {
	return &Retriever{
		generator: generator,
		store:     store,
		logger:    logger,
	}
}

// Retrieve looks up the category's problem list, asks the collaborator to
// choose a problem path, and fetches the referenced documents. A reply that
// does not parse into exactly three fields fails the request; nothing is
// substituted.
func (r *Retriever) Retrieve(ctx context.Context, req Request) (*Result, error) {
	problems, ok := req.CategoryMapping[req.Category]
	if !ok || len(problems) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrCategoryNotMapped, req.Category)
	}

	prompt := req.Prompt(problems, req.Subcategory, req.QuestionInfo)
	raw, err := r.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("problem path selection failed: %w", err)
	}

	selection, err := ParseSelection(raw)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Problem path selected",
		zap.String("category", req.Category),
		zap.String("selected_path", selection.Path),
	)

	docIDs := req.SubcategoryMapping[selection.Subcategory]
	if len(docIDs) == 0 {
		docIDs = []string{selection.DocID}
	}

	docs := make([]docstore.Document, 0, len(docIDs))
	for _, id := range docIDs {
		doc, err := r.store.GetDocument(id)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch manual document %q: %w", id, err)
		}
		docs = append(docs, doc)
	}

	return &Result{
		ProblemList: problems,
		SelectedDoc: selection.Path,
		Documents:   docs,
	}, nil
}

// Copyright 2024 Office Hours Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pipeline orchestrates one support request end to end: conversation
// build, classification, retrieval dispatch, staged generation, and the
// packaged audit record.
package pipeline

import (
	"context"
	"fmt"

	"github.com/your-org/oh-assistant/internal/category"
	"github.com/your-org/oh-assistant/internal/conversation"
	"github.com/your-org/oh-assistant/internal/manual"
	"github.com/your-org/oh-assistant/internal/prompts"
	"github.com/your-org/oh-assistant/internal/search"
	"go.uber.org/zap"
)

// ConversationBuilder turns a ticket into the expanded conversation.
type ConversationBuilder interface {
	Build(ctx context.Context, t conversation.Ticket) (conversation.Conversation, error)
}

// Generator runs one prompt through the generation collaborator.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// QASearcher retrieves previously answered question/answer pairs.
type QASearcher interface {
	SearchQA(ctx context.Context, query string, topK int) ([]search.QAPair, error)
}

// HybridSearcher runs hybrid retrieval against a named index.
type HybridSearcher interface {
	SearchHybrid(ctx context.Context, text, index string, topK int, semanticReranking bool) (*search.HybridResult, error)
}

// ManualRetriever performs the mapping-driven curated-document lookup.
type ManualRetriever interface {
	Retrieve(ctx context.Context, req manual.Request) (*manual.Result, error)
}

// Record is the packaged result of one request. It carries every
// intermediate artifact so a stored record fully explains how the answer
// was produced. Hybrid and Manual are nil when the route did not run them.
type Record struct {
	Conversation conversation.Conversation `json:"processed_conversation"`
	SearchQuery  string                    `json:"processed_conversation_search"`
	QAPairs      []search.QAPair           `json:"retrieved_qa_pairs"`
	Hybrid       *search.HybridResult      `json:"retrieved_docs_hybrid"`
	Manual       *manual.Result            `json:"retrieved_docs_manual"`
	Draft        string                    `json:"response_0"`
	Final        string                    `json:"response"`
}

// Options wires the pipeline's collaborators and retrieval settings.
type Options struct {
	Builder    ConversationBuilder
	Classifier category.Classifier
	Router     *category.Router
	Generator  Generator
	QASearch   QASearcher
	Hybrid     HybridSearcher
	Manual     ManualRetriever

	QATopK             int
	CategoryMapping    map[string][]string
	SubcategoryMapping map[string][]string

	Logger *zap.Logger
}

// Pipeline processes support requests.
type Pipeline struct {
	opts Options
}

// New validates the wiring and creates a pipeline.
func New(opts Options) (*Pipeline, error) {
	switch {
	case opts.Builder == nil:
		return nil, &ConfigurationError{Field: "builder", Reason: "is required"}
	case opts.Classifier == nil:
		return nil, &ConfigurationError{Field: "classifier", Reason: "is required"}
	case opts.Router == nil:
		return nil, &ConfigurationError{Field: "router", Reason: "is required"}
	case opts.Generator == nil:
		return nil, &ConfigurationError{Field: "generator", Reason: "is required"}
	case opts.QASearch == nil:
		return nil, &ConfigurationError{Field: "qa searcher", Reason: "is required"}
	case opts.Hybrid == nil:
		return nil, &ConfigurationError{Field: "hybrid searcher", Reason: "is required"}
	case opts.Manual == nil:
		return nil, &ConfigurationError{Field: "manual retriever", Reason: "is required"}
	case opts.QATopK <= 0:
		return nil, &ConfigurationError{Field: "qa top_k", Reason: "must be positive"}
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Pipeline{opts: opts}, nil
}

// Process runs the full pipeline for one ticket. The same ticket and
// collaborator replies always yield the same record; the pipeline itself
// holds no per-request state.
func (p *Pipeline) Process(ctx context.Context, ticket conversation.Ticket, promptSet prompts.Set) (*Record, error) {
	conv, err := p.opts.Builder.Build(ctx, ticket)
	if err != nil {
		return nil, &CollaboratorError{Stage: StageOCR, Err: err}
	}

	label, err := p.opts.Classifier.Classify(ctx, classificationText(ticket))
	if err != nil {
		return nil, &CollaboratorError{Stage: StageClassify, Err: err}
	}
	decision := p.opts.Router.Resolve(label)

	p.opts.Logger.Info("Request routed",
		zap.String("category", decision.Label),
		zap.String("route", decision.Route.String()),
		zap.Bool("manual", decision.Manual),
		zap.Int("turns", len(conv)),
	)

	// The search query summarizes every turn except the latest; the latest
	// turn is what the answer responds to, not prior context.
	searchQuery, err := p.opts.Generator.Generate(ctx, promptSet.SummarizeConversation(conv[:len(conv)-1]))
	if err != nil {
		return nil, &CollaboratorError{Stage: StageSummarize, Err: err}
	}

	qaPairs, err := p.opts.QASearch.SearchQA(ctx, searchQuery, p.opts.QATopK)
	if err != nil {
		return nil, &CollaboratorError{Stage: StageQASearch, Err: err}
	}

	var hybridResult *search.HybridResult
	if decision.Hybrid != nil {
		plan := decision.Hybrid
		hybridResult, err = p.opts.Hybrid.SearchHybrid(ctx, searchQuery, plan.Index, plan.TopK, plan.SemanticReranking)
		if err != nil {
			return nil, &CollaboratorError{Stage: StageHybridSearch, Err: err}
		}
	}

	var manualResult *manual.Result
	if decision.Manual {
		manualResult, err = p.opts.Manual.Retrieve(ctx, manual.Request{
			Category:           decision.Label,
			CategoryMapping:    p.opts.CategoryMapping,
			Subcategory:        ticket.Subcategory,
			SubcategoryMapping: p.opts.SubcategoryMapping,
			QuestionInfo:       manual.BuildQuestionInfo(decision.Label, ticket, conv),
			Prompt:             promptSet.ChooseProblemPath,
		})
		if err != nil {
			return nil, &CollaboratorError{Stage: StageManualRetrieve, Err: err}
		}
	}

	record := &Record{
		Conversation: conv,
		SearchQuery:  searchQuery,
		QAPairs:      qaPairs,
		Hybrid:       hybridResult,
		Manual:       manualResult,
	}

	if err := p.generate(ctx, record, decision.Route, promptSet); err != nil {
		return nil, err
	}

	p.opts.Logger.Info("Request processed",
		zap.String("category", decision.Label),
		zap.String("route", decision.Route.String()),
		zap.Int("qa_pairs", len(qaPairs)),
		zap.Int("answer_length", len(record.Final)),
	)

	return record, nil
}

// generate runs the route's generation stages and fills in the record's
// draft and final answers. The assignment route is two-stage: the refine
// prompt sees only the conversation and the draft, never the retrieval
// results.
func (p *Pipeline) generate(ctx context.Context, record *Record, route category.Route, promptSet prompts.Set) error {
	var prompt string

	switch route {
	case category.RouteAssignment:
		draft, err := p.opts.Generator.Generate(ctx, promptSet.AssignmentDraft(record.Conversation, record.QAPairs, record.Manual))
		if err != nil {
			return &CollaboratorError{Stage: StageGenerate, Err: fmt.Errorf("draft: %w", err)}
		}
		record.Draft = draft
		prompt = promptSet.AssignmentRefine(record.Conversation, draft)
	case category.RouteContent:
		prompt = promptSet.Content(record.Conversation, record.QAPairs, record.Hybrid)
	case category.RouteLogistics:
		prompt = promptSet.Logistics(record.Conversation, record.QAPairs, record.Hybrid)
	case category.RouteWorksheet:
		prompt = promptSet.Worksheet(record.Conversation, record.QAPairs, record.Hybrid, record.Manual)
	default:
		// Label outside every configured set: no generation runs and the
		// final answer stays empty.
		return nil
	}

	final, err := p.opts.Generator.Generate(ctx, prompt)
	if err != nil {
		return &CollaboratorError{Stage: StageGenerate, Err: err}
	}
	record.Final = final

	return nil
}

func classificationText(t conversation.Ticket) string {
	return fmt.Sprintf("%s %s %s", t.Assignment, t.Question, t.Description)
}

package pipeline

import "fmt"

// Stage names used in CollaboratorError, matching the pipeline step that
// failed.
const (
	StageOCR            = "ocr"
	StageClassify       = "classify"
	StageSummarize      = "summarize"
	StageQASearch       = "qa_search"
	StageHybridSearch   = "hybrid_search"
	StageManualRetrieve = "manual_retrieve"
	StageGenerate       = "generate"
)

// CollaboratorError wraps a failure from one pipeline stage so callers can
// tell which collaborator broke the request.
type CollaboratorError struct {
	Stage string
	Err   error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed: %v", e.Stage, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports a pipeline wired without a required
// collaborator or setting.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("pipeline configuration error: %s %s", e.Field, e.Reason)
}

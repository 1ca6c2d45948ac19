package domain

import "fmt"

// TaskType selects the prompt, decoding band and validation gate for a query.
type TaskType string

const (
	TaskQA           TaskType = "qa"
	TaskSummary      TaskType = "summary"
	TaskAdvantage    TaskType = "advantage"
	TaskDisadvantage TaskType = "disadvantage"
)

// SummaryType is the requested summary length class.
type SummaryType string

const (
	SummaryConcise       SummaryType = "concise"
	SummaryAnalytical    SummaryType = "analytical"
	SummaryComprehensive SummaryType = "comprehensive"
	SummaryDefault       SummaryType = "default"
)

// ParseSummaryType maps user input to a SummaryType. Empty input maps to the default class.
func ParseSummaryType(s string) (SummaryType, error) {
	switch SummaryType(s) {
	case "":
		return SummaryDefault, nil
	case SummaryConcise, SummaryAnalytical, SummaryComprehensive, SummaryDefault:
		return SummaryType(s), nil
	}
	return "", NewDomainError(ErrCodeValidation, fmt.Sprintf("invalid summary type %q", s))
}

// IsPoints reports whether the task extracts bullet points.
func (t TaskType) IsPoints() bool {
	return t == TaskAdvantage || t == TaskDisadvantage
}

// Query is a transient request against one document.
type Query struct {
	Text        string
	DocID       string
	Task        TaskType
	SummaryType SummaryType
	// Topic describes the document for knowledge-fallback prompts.
	Topic string
	// KnowledgeFallback selects a prompt that relies on model knowledge
	// instead of retrieved context.
	KnowledgeFallback bool
}

// Mode reports the generation mode the query is rendered in.
func (q Query) Mode() GenerationMode {
	if q.KnowledgeFallback {
		return ModeFallback
	}
	return ModeContext
}

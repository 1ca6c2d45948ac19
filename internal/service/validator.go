package service

import (
	"strings"
	"unicode"
)

// instructionTerms are prompt words that signal the model echoed its instructions.
var instructionTerms = []string{
	"summary", "summarize", "summarise", "themes", "implications", "concise", "analytical",
	"comprehensive", "instructions", "paragraph", "format", "bullet", "length",
}

// ValidatorConfig holds the relevance gate thresholds.
type ValidatorConfig struct {
	SummaryQAMinShared int
	SummaryQAMinWords  int
	QAMinShared        int
	QAMinWords         int
	SummaryMinWords    int
	MaxRepetition      int
	MaxInstructionHits int
	WindowSize         int
	// SharedWordMinLen is the shortest word counted as a shared term.
	SharedWordMinLen int
}

func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		SummaryQAMinShared: 3,
		SummaryQAMinWords:  50,
		QAMinShared:        2,
		QAMinWords:         20,
		SummaryMinWords:    200,
		MaxRepetition:      2,
		MaxInstructionHits: 2,
		WindowSize:         10,
		SharedWordMinLen:   4,
	}
}

// Verdict is the outcome of a relevance gate. Reason is empty when accepted.
type Verdict struct {
	Accepted bool
	Reason   string
}

func accept() Verdict               { return Verdict{Accepted: true} }
func reject(reason string) Verdict { return Verdict{Reason: reason} }

// RelevanceValidator applies heuristic gates to generated text. It checks shape, not truth:
// a fabricated answer with enough overlap and length passes.
type RelevanceValidator struct {
	cfg ValidatorConfig
}

func NewRelevanceValidator(cfg ValidatorConfig) *RelevanceValidator {
	def := DefaultValidatorConfig()
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.SharedWordMinLen <= 0 {
		cfg.SharedWordMinLen = def.SharedWordMinLen
	}
	return &RelevanceValidator{cfg: cfg}
}

// ValidateAnswer gates a question answer on shared terms, length and repetition.
func (v *RelevanceValidator) ValidateAnswer(question, answer string) Verdict {
	minShared, minWords := v.cfg.QAMinShared, v.cfg.QAMinWords
	if isSummaryQuestion(question) {
		minShared, minWords = v.cfg.SummaryQAMinShared, v.cfg.SummaryQAMinWords
	}

	if n := wordCount(answer); n < minWords {
		return reject("too few words")
	}
	if repetition(answer, v.cfg.WindowSize) > v.cfg.MaxRepetition {
		return reject("repetitive")
	}
	if sharedTerms(question, answer, v.cfg.SharedWordMinLen) < minShared {
		return reject("too few shared terms")
	}
	return accept()
}

// ValidateSummary gates a summary on length, repetition and echoed instruction terms.
func (v *RelevanceValidator) ValidateSummary(summary string) Verdict {
	if wordCount(summary) < v.cfg.SummaryMinWords {
		return reject("too few words")
	}
	if repetition(summary, v.cfg.WindowSize) > v.cfg.MaxRepetition {
		return reject("repetitive")
	}
	words := wordSet(summary)
	hits := 0
	for _, term := range instructionTerms {
		if _, ok := words[term]; ok {
			hits++
		}
	}
	if hits > v.cfg.MaxInstructionHits {
		return reject("echoes instructions")
	}
	return accept()
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// wordSet lowercases s and splits it on anything that is not a letter or digit.
func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		set[w] = struct{}{}
	}
	return set
}

func sharedTerms(a, b string, minLen int) int {
	bs := wordSet(b)
	n := 0
	for w := range wordSet(a) {
		if len([]rune(w)) < minLen {
			continue
		}
		if _, ok := bs[w]; ok {
			n++
		}
	}
	return n
}

// repetition splits s into consecutive window-rune segments and returns the
// highest count of any identical segment.
func repetition(s string, window int) int {
	runes := []rune(strings.ToLower(s))
	counts := make(map[string]int)
	best := 0
	for i := 0; i+window <= len(runes); i += window {
		key := string(runes[i : i+window])
		counts[key]++
		if counts[key] > best {
			best = counts[key]
		}
	}
	return best
}

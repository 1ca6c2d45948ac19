package domain

// GenerationMode tells whether a prompt embeds retrieved context or relies on model knowledge.
type GenerationMode string

const (
	ModeContext  GenerationMode = "context"
	ModeFallback GenerationMode = "fallback"
)

// DecodingParams are the length and sampling knobs passed to a generator.
type DecodingParams struct {
	MinWords          int     `yaml:"min_words"`
	MaxWords          int     `yaml:"max_words"`
	NumBeams          int     `yaml:"num_beams"`
	Temperature       float64 `yaml:"temperature"`
	DoSample          bool    `yaml:"do_sample"`
	LengthPenalty     float64 `yaml:"length_penalty"`
	NoRepeatNgramSize int     `yaml:"no_repeat_ngram_size"`
}

// GenerationAttempt records one generator invocation by the retry orchestrator.
type GenerationAttempt struct {
	Index    int
	Mode     GenerationMode
	Prompt   string
	Params   DecodingParams
	Result   string
	Accepted bool
	Err      error
}

// RetrievedChunk is one retrieval hit. Score is zero for keyword escalation hits.
type RetrievedChunk struct {
	Text  string
	Score float64
}

// RetrievalResult is the ordered output of one retrieval.
type RetrievalResult struct {
	Chunks []RetrievedChunk
}

// Empty reports whether nothing was retrieved.
func (r RetrievalResult) Empty() bool {
	return len(r.Chunks) == 0
}

// Context joins retrieved texts in retrieval order.
func (r RetrievalResult) Context() string {
	if len(r.Chunks) == 0 {
		return ""
	}
	out := r.Chunks[0].Text
	for _, c := range r.Chunks[1:] {
		out += "\n\n" + c.Text
	}
	return out
}

package service

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/logger"
	"github.com/cloo-solutions/gistify/internal/metrics"
)

const (
	defaultDisclaimer = "This answer is based on the limited information available in the document."
	minPointWords     = 4
	maxPointWords     = 20
)

var (
	bulletRe      = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)
	citationRe    = regexp.MustCompile(`(?i)\b(cit(e|es|ed|ing|ations?)|referenc\w*)\b`)
	sentenceEndRe = regexp.MustCompile(`[.!?]+(?:\s+|$)`)

	vaguePhrases = []string{
		"etc", "various", "and so on", "many things", "some aspects", "in general",
		"not specified", "no information", "not mentioned", "n/a", "unknown",
	}

	defaultPoints = map[domain.TaskType][]string{
		domain.TaskAdvantage: {
			"- The document presents its central ideas in a clear and well organized structure.",
			"- The document supports its main claims with relevant explanation and examples.",
		},
		domain.TaskDisadvantage: {
			"- The document gives limited attention to practical constraints on its approach.",
			"- The document offers little discussion of alternative approaches or counterarguments.",
		},
	}
)

// RefillFunc generates replacement text for bullet extraction, typically in knowledge-fallback mode.
type RefillFunc func(ctx context.Context) (string, error)

// OutputRefiner cleans answers and extracts bullet points.
type OutputRefiner struct {
	disclaimer string
	metrics    *metrics.Metrics
}

func NewOutputRefiner(disclaimer string, m *metrics.Metrics) *OutputRefiner {
	if disclaimer == "" {
		disclaimer = defaultDisclaimer
	}
	return &OutputRefiner{disclaimer: disclaimer, metrics: m}
}

// RefineAnswer strips disallowed characters, drops fragments of two words or fewer,
// pads thin answers with a disclaimer and appends a source line when a citation is requested.
func (r *OutputRefiner) RefineAnswer(answer, question, sourceName string) string {
	var kept []string
	for _, s := range splitSentences(stripDisallowed(answer)) {
		if wordCount(s) > 2 {
			kept = append(kept, s)
		}
	}
	if len(kept) < 2 {
		kept = append(kept, r.disclaimer)
	}
	if citationRe.MatchString(question) && sourceName != "" {
		kept = append(kept, "Source: "+sourceName+".")
	}
	return strings.Join(kept, " ")
}

// ParsePoints returns exactly two bullet lines for the given polarity. When the text
// yields fewer than two valid bullets, refill is called once; remaining gaps get defaults.
func (r *OutputRefiner) ParsePoints(ctx context.Context, text string, polarity domain.TaskType, refill RefillFunc) []string {
	points := make([]string, 0, domain.PointsPerList)
	seen := make(map[string]struct{})
	collect := func(s string) {
		for _, p := range validPoints(s) {
			if len(points) == domain.PointsPerList {
				return
			}
			key := strings.ToLower(p)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			points = append(points, p)
		}
	}

	collect(text)
	if len(points) < domain.PointsPerList && refill != nil {
		more, err := refill(ctx)
		if err != nil {
			logger.FromContext(ctx).Warn("point refill failed", "polarity", polarity, "error", err)
		} else {
			collect(more)
		}
	}

	defaults := defaultPoints[polarity]
	if defaults == nil {
		defaults = defaultPoints[domain.TaskAdvantage]
	}
	added := 0
	for _, d := range defaults {
		if len(points) == domain.PointsPerList {
			break
		}
		if _, dup := seen[strings.ToLower(d)]; dup {
			continue
		}
		points = append(points, d)
		added++
	}
	r.metrics.PointDefaulted(string(polarity), added)
	return points
}

// validPoints returns bullet lines of 4 to 20 words, marker excluded, without vague phrases.
func validPoints(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		m := bulletRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n := wordCount(m[1])
		if n < minPointWords || n > maxPointWords {
			continue
		}
		if containsVague(m[1]) {
			continue
		}
		out = append(out, strings.TrimSpace(line))
	}
	return out
}

func containsVague(s string) bool {
	padded := " " + strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '/'
	}), " ") + " "
	for _, p := range vaguePhrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

func stripDisallowed(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case strings.ContainsRune(".,;:!?'\"()-%/&", r):
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func splitSentences(s string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(s, -1) {
		if sent := strings.TrimSpace(s[start:loc[1]]); sent != "" {
			out = append(out, sent)
		}
		start = loc[1]
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

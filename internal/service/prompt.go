package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cloo-solutions/gistify/internal/domain"
)

var (
	summaryQuestionRe = regexp.MustCompile(`(?i)\b(summari[sz]e|summary|overview|gist|tl;?dr|main (points|ideas|findings)|what is (this|the) (paper|document|article) about)\b`)
	listQuestionRe    = regexp.MustCompile(`(?i)\b(list|steps|ways|examples|advantages|disadvantages|benefits|drawbacks|pros|cons|reasons|features|types|points)\b`)
)

// isSummaryQuestion reports whether a question asks for an overview of the whole document.
func isSummaryQuestion(q string) bool {
	return summaryQuestionRe.MatchString(q)
}

func impliesList(q string) bool {
	return listQuestionRe.MatchString(q)
}

var summaryStyle = map[domain.SummaryType]string{
	domain.SummaryConcise:       "a concise summary of 250 to 500 words covering the purpose, method and main conclusions",
	domain.SummaryAnalytical:    "an analytical summary of 400 to 600 words that examines the arguments, evidence, strengths and weaknesses",
	domain.SummaryComprehensive: "a comprehensive summary of 500 to 700 words covering background, method, findings, implications and limitations",
	domain.SummaryDefault:       "a clear summary of 250 to 500 words covering the purpose, method and main conclusions",
}

// PromptBuilder renders task prompts in context or knowledge-fallback mode.
// Fallback prompts reference only the topic, never retrieved text.
type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// Build renders the prompt for q. Knowledge-fallback queries ignore contextText.
func (b *PromptBuilder) Build(q domain.Query, contextText string) string {
	if q.KnowledgeFallback {
		return b.fallback(q)
	}
	switch q.Task {
	case domain.TaskSummary:
		return fmt.Sprintf("Write %s of the following document. Use complete sentences in plain paragraphs.\n\nDocument:\n%s\n\nSummary:",
			styleFor(q.SummaryType), contextText)
	case domain.TaskAdvantage, domain.TaskDisadvantage:
		return fmt.Sprintf("%s\n\nBase your response on this text:\n%s", pointsInstruction(q.Task), contextText)
	default:
		if isSummaryQuestion(q.Text) {
			return fmt.Sprintf("Using the context below, write a structured overview of 150 to 200 words. "+
				"Cover the objectives, the key findings, any concerns raised and the recommendations.\n\n"+
				"Context:\n%s\n\nQuestion: %s\nOverview:", contextText, q.Text)
		}
		return fmt.Sprintf("Answer the question directly using only the context below.%s\n\nContext:\n%s\n\nQuestion: %s\nAnswer:",
			listHint(q.Text), contextText, q.Text)
	}
}

func (b *PromptBuilder) fallback(q domain.Query) string {
	topic := q.Topic
	if strings.TrimSpace(topic) == "" {
		topic = "the document"
	}
	switch q.Task {
	case domain.TaskSummary:
		return fmt.Sprintf("Write %s of %s based on what is generally known about its subject. Use complete sentences in plain paragraphs.",
			styleFor(q.SummaryType), topic)
	case domain.TaskAdvantage, domain.TaskDisadvantage:
		return fmt.Sprintf("%s\n\nThe document is: %s", pointsInstruction(q.Task), topic)
	default:
		if isSummaryQuestion(q.Text) {
			return fmt.Sprintf("Write a structured overview of 150 to 200 words about %s. "+
				"Cover the objectives, the key findings, any concerns and the recommendations.\n\nQuestion: %s\nOverview:", topic, q.Text)
		}
		return fmt.Sprintf("Answer the question about %s from general knowledge.%s\n\nQuestion: %s\nAnswer:",
			topic, listHint(q.Text), q.Text)
	}
}

// Extend asks for additional summary text that continues draft without repeating it.
func (b *PromptBuilder) Extend(q domain.Query, contextText, draft string, missingWords int) string {
	source := contextText
	if strings.TrimSpace(source) == "" {
		source = q.Topic
	}
	return fmt.Sprintf("The summary below is too short. Write about %d more words that continue it with new details "+
		"from the source. Do not repeat sentences already written.\n\nSource:\n%s\n\nSummary so far:\n%s\n\nContinuation:",
		missingWords, source, draft)
}

func styleFor(st domain.SummaryType) string {
	if s, ok := summaryStyle[st]; ok {
		return s
	}
	return summaryStyle[domain.SummaryDefault]
}

func pointsInstruction(task domain.TaskType) string {
	if task == domain.TaskDisadvantage {
		return "List exactly 2 key disadvantages of the document. Focus on limitations or negative aspects. Format as bullet points:\n" +
			"- First disadvantage (max 20 words)\n- Second disadvantage (max 20 words)"
	}
	return "List exactly 2 key advantages of the document. Focus on benefits or positive aspects. Format as bullet points:\n" +
		"- First advantage (max 20 words)\n- Second advantage (max 20 words)"
}

func listHint(question string) string {
	if impliesList(question) {
		return " Format the answer as bullet points, one per line, each starting with \"- \"."
	}
	return ""
}

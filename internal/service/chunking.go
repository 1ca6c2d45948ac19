package service

import (
	"strings"
	"unicode/utf8"
)

// ChunkConfig controls paragraph chunking for document indexing.
type ChunkConfig struct {
	MaxChars int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{MaxChars: 500}
}

// paragraphs splits text on newlines and drops blank lines.
func paragraphs(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// chunkText packs paragraphs into chunks of at most cfg.MaxChars runes, joined by "\n".
// A paragraph longer than the limit becomes its own chunk unless it is the only
// paragraph, in which case it is truncated to the limit.
func chunkText(text string, cfg ChunkConfig) []string {
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	paras := paragraphs(text)
	if len(paras) == 0 {
		return nil
	}
	if len(paras) == 1 {
		runes := []rune(paras[0])
		if len(runes) > cfg.MaxChars {
			return []string{strings.TrimSpace(string(runes[:cfg.MaxChars]))}
		}
		return paras
	}

	chunks := make([]string, 0, 8)
	var buf strings.Builder
	bufLen := 0
	for _, p := range paras {
		pLen := utf8.RuneCountInString(p)
		if bufLen == 0 {
			buf.WriteString(p)
			bufLen = pLen
			continue
		}
		if bufLen+1+pLen > cfg.MaxChars {
			chunks = append(chunks, buf.String())
			buf.Reset()
			buf.WriteString(p)
			bufLen = pLen
			continue
		}
		buf.WriteByte('\n')
		buf.WriteString(p)
		bufLen += 1 + pLen
	}
	if bufLen > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}

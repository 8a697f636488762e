// Package ingestion handles document processing: chunking, embedding, and
// pipeline orchestration.
package ingestion

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Chunk is one piece of chunked content.
type Chunk struct {
	Content string
	Index   int
}

// ChunkerConfig configures paragraph chunking. Zero values fall back to the
// defaults.
type ChunkerConfig struct {
	// MaxChars is the target chunk size in characters.
	MaxChars int

	// Overlap is how many trailing bytes of a chunk are carried into the
	// next one for context continuity. Zero uses the default; a negative
	// value disables the carry.
	Overlap int
}

// Chunker splits raw text into paragraph-aligned chunks with overlap.
type Chunker struct {
	config ChunkerConfig
}

// NewChunker creates a Chunker with the given configuration.
func NewChunker(config ChunkerConfig) *Chunker {
	if config.MaxChars <= 0 {
		config.MaxChars = 1800
	}
	if config.Overlap == 0 {
		config.Overlap = 200
	} else if config.Overlap < 0 {
		config.Overlap = 0
	}
	return &Chunker{config: config}
}

var (
	trailingSpaceRe = regexp.MustCompile(`[ \t]+\n`)
	blankRunsRe     = regexp.MustCompile(`\n{3,}`)
	paragraphRe     = regexp.MustCompile(`\n{2,}`)
)

// Chunk splits content by paragraphs and accumulates them into blocks of at
// most MaxChars, carrying the tail of each block into the next as overlap.
// A single paragraph larger than MaxChars becomes its own chunk.
func (c *Chunker) Chunk(content string) []Chunk {
	text := normalize(content)
	if text == "" {
		return nil
	}

	paras := paragraphRe.Split(text, -1)

	var chunks []Chunk
	var current []string
	size := 0

	flush := func() {
		chunks = append(chunks, Chunk{
			Content: strings.Join(current, "\n\n"),
			Index:   len(chunks),
		})
	}

	for _, p := range paras {
		pSize := len(p) + 2 // pays for the joining blank line
		if size+pSize > c.config.MaxChars && len(current) > 0 {
			flush()

			// Overlap: reuse the tail of the previous chunk.
			var carry string
			if c.config.Overlap > 0 {
				prev := strings.Join(current, "\n\n")
				start := len(prev) - c.config.Overlap
				if start < 0 {
					start = 0
				}
				// Keep the carry valid UTF-8 when the cut lands
				// inside a multi-byte rune.
				for start < len(prev) && !utf8.RuneStart(prev[start]) {
					start++
				}
				carry = prev[start:]
			}
			if carry != "" {
				current = []string{carry, p}
			} else {
				current = []string{p}
			}
			size = len(strings.Join(current, "\n\n"))
			continue
		}
		current = append(current, p)
		size += pSize
	}
	if len(current) > 0 {
		flush()
	}

	return chunks
}

// normalize strips carriage returns and trailing whitespace, and collapses
// runs of three or more newlines into a paragraph break.
func normalize(raw string) string {
	text := strings.ReplaceAll(raw, "\r", "")
	text = trailingSpaceRe.ReplaceAllString(text, "\n")
	text = blankRunsRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

package ingestion

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewChunker_Defaults(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{})

	// Should apply defaults
	if chunker.config.MaxChars != 1800 {
		t.Errorf("expected default MaxChars 1800, got %d", chunker.config.MaxChars)
	}
	if chunker.config.Overlap != 200 {
		t.Errorf("expected zero Overlap to default to 200, got %d", chunker.config.Overlap)
	}

	chunker = NewChunker(ChunkerConfig{Overlap: -1})
	if chunker.config.Overlap != 0 {
		t.Errorf("expected negative Overlap to disable the carry, got %d", chunker.config.Overlap)
	}
}

func TestChunker_DefaultOverlapCarries(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{})

	chunks := chunker.Chunk(strings.Repeat("a", 1700) + "\n\n" + strings.Repeat("b", 300))

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	wantPrefix := strings.Repeat("a", 200) + "\n\n"
	if !strings.HasPrefix(chunks[1].Content, wantPrefix) {
		t.Errorf("second chunk does not carry the 200-byte tail: %q", chunks[1].Content[:20])
	}
}

func TestChunker_EmptyContent(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{})

	chunks := chunker.Chunk("")
	if chunks != nil {
		t.Errorf("expected nil for empty content, got %v", chunks)
	}

	chunks = chunker.Chunk("   \n\n  ")
	if chunks != nil {
		t.Errorf("expected nil for whitespace content, got %v", chunks)
	}
}

func TestChunker_SingleParagraph(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{MaxChars: 100, Overlap: 10})

	chunks := chunker.Chunk("One short paragraph.")

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "One short paragraph." {
		t.Errorf("unexpected content: %q", chunks[0].Content)
	}
	if chunks[0].Index != 0 {
		t.Errorf("expected index 0, got %d", chunks[0].Index)
	}
}

func TestChunker_SplitsAtMaxChars(t *testing.T) {
	p1 := strings.Repeat("a", 60)
	p2 := strings.Repeat("b", 60)
	p3 := strings.Repeat("c", 60)
	chunker := NewChunker(ChunkerConfig{MaxChars: 100, Overlap: -1})

	chunks := chunker.Chunk(p1 + "\n\n" + p2 + "\n\n" + p3)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("chunk %d has wrong index %d", i, chunk.Index)
		}
	}
	if chunks[0].Content != p1 || chunks[1].Content != p2 || chunks[2].Content != p3 {
		t.Error("paragraphs were not kept whole across chunk boundaries")
	}
}

func TestChunker_OverlapCarriesTail(t *testing.T) {
	p1 := strings.Repeat("a", 80)
	p2 := strings.Repeat("b", 80)
	chunker := NewChunker(ChunkerConfig{MaxChars: 100, Overlap: 20})

	chunks := chunker.Chunk(p1 + "\n\n" + p2)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	wantPrefix := strings.Repeat("a", 20) + "\n\n"
	if !strings.HasPrefix(chunks[1].Content, wantPrefix) {
		t.Errorf("second chunk does not start with the previous tail: %q", chunks[1].Content[:30])
	}
	if !strings.HasSuffix(chunks[1].Content, p2) {
		t.Error("second chunk is missing its own paragraph")
	}
}

func TestChunker_OverlapKeepsRuneBoundaries(t *testing.T) {
	// 40 three-byte runes per paragraph; an overlap of 20 bytes lands
	// inside a rune and must advance to the next boundary.
	p1 := strings.Repeat("€", 40)
	p2 := strings.Repeat("€", 40)
	chunker := NewChunker(ChunkerConfig{MaxChars: 130, Overlap: 20})

	chunks := chunker.Chunk(p1 + "\n\n" + p2)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if !utf8.ValidString(chunk.Content) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
	}
	if !strings.HasPrefix(chunks[1].Content, "€") {
		t.Errorf("second chunk starts mid-rune: %q", chunks[1].Content[:6])
	}
}

func TestChunker_GroupsSmallParagraphs(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{MaxChars: 1800, Overlap: 200})

	chunks := chunker.Chunk("First paragraph.\n\nSecond paragraph.\n\nThird paragraph.")

	if len(chunks) != 1 {
		t.Fatalf("expected small paragraphs grouped into 1 chunk, got %d", len(chunks))
	}
	want := "First paragraph.\n\nSecond paragraph.\n\nThird paragraph."
	if chunks[0].Content != want {
		t.Errorf("got %q, want %q", chunks[0].Content, want)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"carriage returns", "a\r\nb", "a\nb"},
		{"trailing spaces", "a   \nb", "a\nb"},
		{"blank runs collapse", "a\n\n\n\nb", "a\n\nb"},
		{"outer whitespace trimmed", "  \na\n ", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalize(tt.input); got != tt.want {
				t.Errorf("normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
)

// Mode selects how a document is cut before size-bounded splitting.
type Mode string

const (
	ModePlain   Mode = "plain"
	ModeHeaders Mode = "headers"
)

var headerRe = regexp.MustCompile(`(?m)^#{1,6}[ \t]+.*$`)

// TextSplitter cuts text into windows of at most chunkSize characters,
// preferring to end a window just after a sentence end or a newline.
// Consecutive windows share overlap characters.
type TextSplitter struct {
	chunkSize int
	overlap   int
}

// NewTextSplitter rejects sizes that could stop the cursor from advancing.
func NewTextSplitter(chunkSize, overlap int) (*TextSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", domain.ErrInvalidConfig, chunkSize, overlap)
	}
	return &TextSplitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// New builds the splitter for the given mode.
func New(mode Mode, chunkSize, overlap int) (domain.Splitter, error) {
	ts, err := NewTextSplitter(chunkSize, overlap)
	if err != nil {
		return nil, err
	}
	switch mode {
	case ModePlain, "":
		return ts, nil
	case ModeHeaders:
		return headerSplitter{ts}, nil
	default:
		return nil, fmt.Errorf("%w: unknown chunker mode %q", domain.ErrInvalidConfig, mode)
	}
}

// ChunkSize returns the maximum window length in characters.
func (s *TextSplitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the number of characters shared by consecutive windows.
func (s *TextSplitter) Overlap() int { return s.overlap }

// Split returns the ordered segments of text. Blank input yields no segments.
func (s *TextSplitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= s.chunkSize {
		return []string{text}
	}

	runes := []rune(text)
	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + s.chunkSize
		if end >= len(runes) {
			chunks = appendNonBlank(chunks, string(runes[start:]))
			break
		}
		if b := lastBoundary(runes[start:end]); b > s.overlap {
			cut := start + b + 1
			chunks = appendNonBlank(chunks, string(runes[start:cut]))
			start = cut - s.overlap
			continue
		}
		chunks = appendNonBlank(chunks, string(runes[start:end]))
		start = end - s.overlap
	}
	return chunks
}

// SplitByHeaders drops markdown header lines, then re-splits any section
// longer than the chunk size.
func (s *TextSplitter) SplitByHeaders(text string) []string {
	var chunks []string
	for _, section := range headerRe.Split(text, -1) {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		if utf8.RuneCountInString(section) > s.chunkSize {
			chunks = append(chunks, s.Split(section)...)
			continue
		}
		chunks = append(chunks, section)
	}
	return chunks
}

type headerSplitter struct {
	*TextSplitter
}

func (h headerSplitter) Split(text string) []string { return h.SplitByHeaders(text) }

// lastBoundary returns the index of the rightmost newline, or of the
// rightmost '.', '?' or '!' followed by a space, or -1.
func lastBoundary(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		switch window[i] {
		case '\n':
			return i
		case '.', '?', '!':
			if i+1 < len(window) && window[i+1] == ' ' {
				return i
			}
		}
	}
	return -1
}

func appendNonBlank(chunks []string, s string) []string {
	if strings.TrimSpace(s) == "" {
		return chunks
	}
	return append(chunks, s)
}

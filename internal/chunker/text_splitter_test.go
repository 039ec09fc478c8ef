package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
)

// periodicText repeats an 80 character sentence and cuts the result to n characters.
func periodicText(n int) string {
	sentence := strings.Repeat("x", 78) + ". "
	return strings.Repeat(sentence, n/80+1)[:n]
}

func newSplitter(t *testing.T, size, overlap int) *TextSplitter {
	t.Helper()
	s, err := NewTextSplitter(size, overlap)
	require.NoError(t, err)
	return s
}

func TestNewTextSplitter_RejectsBadOverlap(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
		{"negative overlap", 100, -1},
		{"zero size", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTextSplitter(tt.size, tt.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestSplit_ShortTextIsSingleSegment(t *testing.T) {
	s := newSplitter(t, 1000, 100)
	text := "  A short paragraph about ROS 2 nodes.\n"
	assert.Equal(t, []string{text}, s.Split(text))
}

func TestSplit_EmptyInput(t *testing.T) {
	s := newSplitter(t, 1000, 100)
	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split(" \n\t "))
}

func TestSplit_PeriodicSentences(t *testing.T) {
	s := newSplitter(t, 1000, 100)
	text := periodicText(2500)

	chunks := s.Split(text)
	require.Len(t, chunks, 3)

	assert.Equal(t, text[:959], chunks[0])
	assert.Equal(t, text[859:1839], chunks[1])
	assert.Equal(t, text[1739:], chunks[2])

	for i, c := range chunks {
		assert.LessOrEqual(t, len(c), 1000, "chunk %d too long", i)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
	for i := 0; i+1 < len(chunks); i++ {
		prev, next := chunks[i], chunks[i+1]
		assert.Equal(t, prev[len(prev)-100:], next[:100], "chunks %d and %d must share the overlap", i, i+1)
	}
}

func TestSplit_NoBoundaryTakesFullWindow(t *testing.T) {
	s := newSplitter(t, 100, 10)
	text := strings.Repeat("a", 250)

	chunks := s.Split(text)
	require.Len(t, chunks, 3)
	assert.Equal(t, text[:100], chunks[0])
	assert.Equal(t, text[90:190], chunks[1])
	assert.Equal(t, text[180:], chunks[2])
}

func TestSplit_BoundaryInsideOverlapIsIgnored(t *testing.T) {
	s := newSplitter(t, 100, 20)
	// The only boundary sits at offset 5, before the overlap offset.
	text := "Hello. " + strings.Repeat("b", 200)

	chunks := s.Split(text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, string([]rune(text)[:100]), chunks[0])
}

func TestSplit_NewlineBoundary(t *testing.T) {
	s := newSplitter(t, 100, 10)
	text := strings.Repeat("c", 60) + "\n" + strings.Repeat("d", 100)

	chunks := s.Split(text)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, strings.Repeat("c", 60)+"\n", chunks[0])
}

func TestSplit_CountsCharactersNotBytes(t *testing.T) {
	s := newSplitter(t, 50, 5)
	text := strings.Repeat("é", 120)

	for _, c := range s.Split(text) {
		assert.True(t, utf8.ValidString(c))
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 50)
	}
}

func TestSplit_LengthBoundProperty(t *testing.T) {
	for _, n := range []int{1001, 1500, 3333, 10000} {
		t.Run(fmt.Sprintf("len=%d", n), func(t *testing.T) {
			s := newSplitter(t, 1000, 100)
			for _, c := range s.Split(periodicText(n)) {
				assert.LessOrEqual(t, utf8.RuneCountInString(c), 1100)
				assert.NotEmpty(t, strings.TrimSpace(c))
			}
		})
	}
}

func TestSplitByHeaders(t *testing.T) {
	s := newSplitter(t, 200, 20)
	text := "# Week 1\nIntro to ROS 2.\n## Nodes\nNodes talk over topics.\n### Long\n" + periodicText(500)

	sections := s.SplitByHeaders(text)
	require.GreaterOrEqual(t, len(sections), 4)
	assert.Equal(t, "Intro to ROS 2.", sections[0])
	assert.Equal(t, "Nodes talk over topics.", sections[1])
	for _, sec := range sections {
		assert.NotContains(t, sec, "#")
		assert.LessOrEqual(t, utf8.RuneCountInString(sec), 220)
	}
}

func TestSplitByHeaders_ConsecutiveHeaders(t *testing.T) {
	s := newSplitter(t, 1000, 100)
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"nested headers", "# Week 1\n## Nodes\nNodes talk over topics.\n", []string{"Nodes talk over topics."}},
		{"header at end", "Intro.\n# Week 1\n## Nodes", []string{"Intro."}},
		{"three in a row", "# A\n## B\n### C\nBody one.\n#### D\nBody two.", []string{"Body one.", "Body two."}},
		{"hash inside text", "# Topics\nUse #ros2 tags.\n", []string{"Use #ros2 tags."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.SplitByHeaders(tt.text))
		})
	}
}

func TestNew_Modes(t *testing.T) {
	plain, err := New(ModePlain, 1000, 100)
	require.NoError(t, err)
	assert.IsType(t, &TextSplitter{}, plain)

	headers, err := New(ModeHeaders, 1000, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"Body text."}, headers.Split("# Title\nBody text.\n"))

	_, err = New("sentences", 1000, 100)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

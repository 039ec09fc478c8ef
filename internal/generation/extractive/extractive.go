// Package extractive answers from the retrieved passages themselves, picking
// the sentences most related to the question. It needs no external service.
package extractive

import (
	"context"
	"fmt"
	"strings"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
)

// InsufficientContext is returned when no passages were supplied.
const InsufficientContext = "The provided course content does not contain enough information to answer this question."

// Ranker picks the sentences of text most related to focus.
type Ranker interface {
	SummarizeFor(text, focus string, maxSentences int) (string, error)
}

// Generator builds answers out of context sentences.
type Generator struct {
	ranker       Ranker
	maxSentences int
}

// New creates a generator returning up to maxSentences sentences.
func New(ranker Ranker, maxSentences int) *Generator {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &Generator{ranker: ranker, maxSentences: maxSentences}
}

// Generate ranks the context sentences against the question and caps the
// answer at MaxTokens words.
func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	if strings.TrimSpace(req.Context) == "" {
		return InsufficientContext, nil
	}
	out, err := g.ranker.SummarizeFor(req.Context, req.Question, g.maxSentences)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	if words := strings.Fields(out); req.MaxTokens > 0 && len(words) > req.MaxTokens {
		out = strings.Join(words[:req.MaxTokens], " ")
	}
	return out, nil
}

package service

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
)

// contextPrefixWords is how many leading context tokens the heuristic check looks at.
const contextPrefixWords = 50

// HeuristicValidator accepts a response sharing at least one lower-cased
// whitespace token with the first 50 tokens of the context. It is a coarse
// placeholder, not an entailment check.
type HeuristicValidator struct{}

// Validate implements domain.Validator.
func (HeuristicValidator) Validate(_, response, contextText string) bool {
	words := strings.Fields(strings.ToLower(contextText))
	if len(words) > contextPrefixWords {
		words = words[:contextPrefixWords]
	}
	prefix := make(map[string]struct{}, len(words))
	for _, w := range words {
		prefix[w] = struct{}{}
	}
	for _, w := range strings.Fields(strings.ToLower(response)) {
		if _, ok := prefix[w]; ok {
			return true
		}
	}
	return false
}

var unicodeWordRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’]\p{L}+)*`)

// OverlapValidator accepts a response whose word set has an Ochiai
// coefficient of at least Threshold with the whole context.
type OverlapValidator struct {
	Threshold float64
}

// Validate implements domain.Validator.
func (v OverlapValidator) Validate(_, response, contextText string) bool {
	return overlapOchiai(toTokenSet(response), contextText) >= v.Threshold
}

// NewValidator returns the validator named kind: "heuristic" or "overlap".
func NewValidator(kind string, threshold float64) (domain.Validator, error) {
	switch kind {
	case "heuristic", "":
		return HeuristicValidator{}, nil
	case "overlap":
		if threshold <= 0 || threshold > 1 {
			return nil, fmt.Errorf("%w: overlap threshold must be in (0, 1], got %v", domain.ErrInvalidConfig, threshold)
		}
		return OverlapValidator{Threshold: threshold}, nil
	default:
		return nil, fmt.Errorf("%w: unknown validator %q", domain.ErrInvalidConfig, kind)
	}
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// overlapOchiai returns |A∩B| / sqrt(|A||B|) for the query set and the words of text.
func overlapOchiai(qset map[string]struct{}, text string) float64 {
	tset := toTokenSet(text)
	if len(qset) == 0 || len(tset) == 0 {
		return 0
	}
	inter := 0
	for t := range tset {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(tset)))
}

package embed

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
	"unicode"
)

const (
	// StaticDimensions is the vector length of the static encoder.
	StaticDimensions = 384

	// StaticModelID identifies vectors produced by StaticEncoder.
	StaticModelID = "static-v1"

	tokenWeight   = 0.7
	trigramWeight = 0.3
	trigramSize   = 3
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// stopWords are frequent in commit messages and carry little meaning.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "to": true, "in": true, "on": true, "for": true,
	"with": true, "is": true, "it": true, "this": true, "that": true,
}

// StaticEncoder hashes tokens and character trigrams into a fixed number of
// buckets. It needs no network or model files and is deterministic.
type StaticEncoder struct{}

// NewStaticEncoder creates a static encoder.
func NewStaticEncoder() *StaticEncoder {
	return &StaticEncoder{}
}

// ModelID returns StaticModelID.
func (e *StaticEncoder) ModelID() string {
	return StaticModelID
}

// Dimensions returns StaticDimensions.
func (e *StaticEncoder) Dimensions() int {
	return StaticDimensions
}

// Encode returns the hashed vector of text. Blank text yields a zero vector.
func (e *StaticEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vector := make([]float32, StaticDimensions)
	text = strings.TrimSpace(text)
	if text == "" {
		return vector, nil
	}

	for _, token := range tokenize(text) {
		vector[bucket(token)] += tokenWeight
	}
	for _, trigram := range trigrams(compact(text)) {
		vector[bucket(trigram)] += trigramWeight
	}

	return normalize(vector), nil
}

// tokenize lowercases words, splitting camelCase and snake_case identifiers.
func tokenize(text string) []string {
	var tokens []string
	for _, word := range tokenPattern.FindAllString(text, -1) {
		for _, part := range splitCamelCase(word) {
			lower := strings.ToLower(part)
			if lower != "" && !stopWords[lower] {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

func splitCamelCase(s string) []string {
	var parts []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if (prevLower || nextLower) && current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// compact lowercases text and keeps only letters and digits.
func compact(text string) []rune {
	var out []rune
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, r)
		}
	}
	return out
}

func trigrams(runes []rune) []string {
	if len(runes) < trigramSize {
		return nil
	}
	grams := make([]string, 0, len(runes)-trigramSize+1)
	for i := 0; i <= len(runes)-trigramSize; i++ {
		grams = append(grams, string(runes[i:i+trigramSize]))
	}
	return grams
}

func bucket(s string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % StaticDimensions)
}

package memory

import (
	"math"
	"strings"
)

func isDelimiter(r rune) bool {
	switch r {
	case '.', ',', '!', '?', ';', ':', '(', ')':
		return true
	}
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// termFrequencies tokenizes text (lowercased, split on whitespace and
// basic punctuation) into a term-frequency map.
func termFrequencies(text string) map[string]float64 {
	freqs := make(map[string]float64)
	for _, token := range strings.FieldsFunc(strings.ToLower(text), isDelimiter) {
		freqs[token]++
	}
	return freqs
}

// cosineSimilarity computes the cosine of the angle between two
// term-frequency vectors. Either vector being empty yields 0.
func cosineSimilarity(a, b map[string]float64) float64 {
	var dot, normA, normB float64

	for term, av := range a {
		normA += av * av
		if bv, ok := b[term]; ok {
			dot += av * bv
		}
	}
	for _, bv := range b {
		normB += bv * bv
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

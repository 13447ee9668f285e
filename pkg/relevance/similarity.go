package relevance

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Similarity scores how semantically close two documents are. Implementations
// must return a value in [0,1] and 0 when either document is empty.
type Similarity interface {
	Similarity(a, b string) float64
}

// DefaultMaxFeatures caps the TF-IDF vocabulary.
const DefaultMaxFeatures = 500

// TFIDFCosine is the baseline Similarity: cosine similarity between TF-IDF
// vectors fitted on the two compared documents only.
type TFIDFCosine struct {
	MaxFeatures int
}

// Similarity implements Similarity.
func (t TFIDFCosine) Similarity(a, b string) float64 {
	ta, tb := tokenize(a), tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	vocab := t.vocabulary(ta, tb)
	docFreq := make(map[string]int, len(vocab))
	for _, doc := range [][]string{ta, tb} {
		seen := make(map[string]bool)
		for _, tok := range doc {
			if vocab[tok] && !seen[tok] {
				seen[tok] = true
				docFreq[tok]++
			}
		}
	}

	// Smooth idf over a two-document corpus.
	idf := make(map[string]float64, len(docFreq))
	for term, df := range docFreq {
		idf[term] = math.Log(3/float64(1+df)) + 1
	}

	va, vb := weigh(ta, vocab, idf), weigh(tb, vocab, idf)
	var dot, na, nb float64
	for term, wa := range va {
		dot += wa * vb[term]
		na += wa * wa
	}
	for _, wb := range vb {
		nb += wb * wb
	}
	denom := math.Sqrt(na) * math.Sqrt(nb)
	if denom == 0 {
		return 0
	}
	return clamp01(dot / denom)
}

// vocabulary keeps the MaxFeatures most frequent terms across both
// documents, ties broken alphabetically so the result is deterministic.
func (t TFIDFCosine) vocabulary(docs ...[]string) map[string]bool {
	counts := make(map[string]int)
	for _, doc := range docs {
		for _, tok := range doc {
			counts[tok]++
		}
	}
	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	maxFeatures := t.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	if len(terms) > maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if counts[terms[i]] != counts[terms[j]] {
				return counts[terms[i]] > counts[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:maxFeatures]
	}
	vocab := make(map[string]bool, len(terms))
	for _, term := range terms {
		vocab[term] = true
	}
	return vocab
}

func weigh(doc []string, vocab map[string]bool, idf map[string]float64) map[string]float64 {
	v := make(map[string]float64)
	for _, tok := range doc {
		if vocab[tok] {
			v[tok]++
		}
	}
	for term := range v {
		v[term] *= idf[term]
	}
	return v
}

// tokenize lowercases text and splits it into word tokens of at least two
// characters.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	tokens := words[:0]
	for _, w := range words {
		if len([]rune(w)) >= 2 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

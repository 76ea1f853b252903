// Package retrieval provides BM25 ranking over in-memory corpora. Indices are
// built once on first use and are read-only afterwards, so concurrent
// searches need no locking beyond the build guard.
package retrieval

import (
	"math"
	"sort"
	"strings"
	"sync"
)

// BM25 parameters. Standard Okapi values.
const (
	k1 = 1.5
	b  = 0.75
)

// Document is one corpus entry.
type Document struct {
	ID   string
	Text string
}

// Result is a ranked match. Ties on score break by corpus order.
type Result struct {
	ID    string
	Score float64
}

// Index is a BM25 index over a fixed corpus.
type Index struct {
	docs []Document

	buildOnce sync.Once
	tf        []map[string]int // per-document term frequency
	df        map[string]int   // document frequency per term
	docLen    []int
	avgLen    float64
}

// NewIndex creates an index over docs. The corpus is not copied; callers must
// not mutate it afterwards.
func NewIndex(docs []Document) *Index {
	return &Index{docs: docs}
}

// Len returns the corpus size.
func (ix *Index) Len() int {
	return len(ix.docs)
}

// Tokenize lowercases and whitespace-splits text.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func (ix *Index) build() {
	ix.tf = make([]map[string]int, len(ix.docs))
	ix.df = make(map[string]int)
	ix.docLen = make([]int, len(ix.docs))

	total := 0
	for i, doc := range ix.docs {
		tokens := Tokenize(doc.Text)
		freq := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freq[tok]++
		}
		for tok := range freq {
			ix.df[tok]++
		}
		ix.tf[i] = freq
		ix.docLen[i] = len(tokens)
		total += len(tokens)
	}
	if len(ix.docs) > 0 {
		ix.avgLen = float64(total) / float64(len(ix.docs))
	}
}

// Search returns the top-k documents for the query, excluding IDs in exclude
// (nil allowed). Documents scoring 0 are omitted.
func (ix *Index) Search(query string, k int, exclude map[string]bool) []Result {
	ix.buildOnce.Do(ix.build)

	if k <= 0 || len(ix.docs) == 0 {
		return nil
	}

	terms := Tokenize(query)
	n := float64(len(ix.docs))

	type scored struct {
		pos   int
		score float64
	}
	var matches []scored
	for i := range ix.docs {
		if exclude != nil && exclude[ix.docs[i].ID] {
			continue
		}
		var score float64
		for _, term := range terms {
			f := float64(ix.tf[i][term])
			if f == 0 {
				continue
			}
			df := float64(ix.df[term])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := f * (k1 + 1) / (f + k1*(1-b+b*float64(ix.docLen[i])/ix.avgLen))
			score += idf * norm
		}
		if score > 0 {
			matches = append(matches, scored{pos: i, score: score})
		}
	}

	// Stable sort keeps corpus order for equal scores.
	sort.SliceStable(matches, func(a, c int) bool {
		return matches[a].score > matches[c].score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{ID: ix.docs[m.pos].ID, Score: m.score}
	}
	return results
}

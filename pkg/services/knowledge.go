package services

import (
	"log/slog"
	"strings"

	"github.com/codearena/arena/pkg/dataset"
	"github.com/codearena/arena/pkg/retrieval"
)

// Knowledge bundles the static hint corpora: the strategy document, the
// textbook with its index, the guide with one index per difficulty tier, and
// the problem-similarity index over the whole dataset. Built once at startup,
// read-only afterwards.
type Knowledge struct {
	Strategy string

	textbook      []dataset.Article
	textbookIndex *retrieval.TextIndex

	guide        dataset.Guide
	guideIndices map[string]*retrieval.TextIndex

	problemIndex *retrieval.ProblemIndex
	problems     *dataset.Loader
}

// guideExplanationPrefix bounds how much of each explanation feeds the guide
// index; concept names should dominate the ranking.
const guideExplanationPrefix = 200

// NewKnowledge loads all corpora and builds the indices. Missing corpora are
// tolerated: the matching hint levels return empty results.
func NewKnowledge(problems *dataset.Loader, strategyDir, textbookDir, guideDir string) *Knowledge {
	k := &Knowledge{problems: problems, guideIndices: map[string]*retrieval.TextIndex{}}
	logger := slog.Default()

	if strategyDir != "" {
		strategy, err := dataset.LoadStrategy(strategyDir)
		if err != nil {
			logger.Warn("Strategy document unavailable", "dir", strategyDir, "error", err)
		}
		k.Strategy = strategy
	}

	if textbookDir != "" {
		articles, err := dataset.LoadTextbook(textbookDir)
		if err != nil {
			logger.Warn("Textbook corpus unavailable", "dir", textbookDir, "error", err)
		}
		k.textbook = articles
	}
	docs := make([]retrieval.Document, len(k.textbook))
	for i, a := range k.textbook {
		docs[i] = retrieval.Document{ID: a.Title, Text: a.Title + " " + a.Content}
	}
	k.textbookIndex = retrieval.NewTextIndex(docs)

	if guideDir != "" {
		guide, err := dataset.LoadGuide(guideDir)
		if err != nil {
			logger.Warn("Guide corpus unavailable", "dir", guideDir, "error", err)
		}
		k.guide = guide
	}
	for tier, concepts := range k.guide {
		tierDocs := make([]retrieval.Document, len(concepts))
		for i, c := range concepts {
			text := c.Concept + " " + firstN(c.Explanation, guideExplanationPrefix)
			tierDocs[i] = retrieval.Document{ID: c.Concept, Text: text}
		}
		k.guideIndices[tier] = retrieval.NewTextIndex(tierDocs)
	}

	var problemDocs []retrieval.Document
	for _, id := range problems.ProblemIDs("") {
		p, err := problems.LoadProblem(id)
		if err != nil {
			continue
		}
		var sb strings.Builder
		sb.WriteString(p.Description)
		for _, c := range p.Samples {
			sb.WriteString(" ")
			sb.WriteString(c.Input)
			sb.WriteString(" ")
			sb.WriteString(c.Expected)
		}
		problemDocs = append(problemDocs, retrieval.Document{ID: id, Text: sb.String()})
	}
	k.problemIndex = retrieval.NewProblemIndex(problemDocs)

	logger.Info("Knowledge corpora loaded",
		"textbook_articles", len(k.textbook),
		"guide_tiers", len(k.guide),
		"indexed_problems", len(problemDocs),
		"has_strategy", k.Strategy != "")
	return k
}

// Article returns a textbook article by title.
func (k *Knowledge) Article(title string) (dataset.Article, bool) {
	for _, a := range k.textbook {
		if a.Title == title {
			return a, true
		}
	}
	return dataset.Article{}, false
}

// GuideConcept returns a concept entry from a difficulty tier by name.
func (k *Knowledge) GuideConcept(tier, concept string) (dataset.GuideConcept, bool) {
	for _, c := range k.guide[tier] {
		if c.Concept == concept {
			return c, true
		}
	}
	return dataset.GuideConcept{}, false
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// algorithmicTerms is the fixed vocabulary for level-1 keyword extraction:
// the intersection of a problem description with this list becomes the
// textbook query.
var algorithmicTerms = []string{
	"array", "backtracking", "bfs", "binary", "bitmask", "bitwise", "bridge",
	"combinatorics", "component", "compression", "convex", "cycle", "dfs",
	"dijkstra", "disjoint", "divide", "dp", "dynamic", "fenwick", "flow",
	"gcd", "geometry", "graph", "greedy", "hashing", "heap", "interval",
	"knapsack", "kmp", "lca", "lis", "matrix", "median", "memoization",
	"modular", "monotonic", "mst", "parity", "permutation", "prefix",
	"priority", "queue", "recursion", "segment", "shortest", "simulation",
	"sliding", "sorting", "sparse", "stack", "string", "subsequence",
	"subset", "suffix", "topological", "tree", "trie", "two-pointer",
	"union-find",
}

// extractKeywords intersects a description with the algorithmic vocabulary.
// When nothing matches, the whole description is the query.
func extractKeywords(description string) string {
	present := map[string]bool{}
	for _, tok := range retrieval.Tokenize(description) {
		present[strings.Trim(tok, ".,;:!?()[]{}\"'")] = true
	}

	var found []string
	for _, term := range algorithmicTerms {
		if present[term] {
			found = append(found, term)
		}
	}
	if len(found) == 0 {
		return description
	}
	return strings.Join(found, " ")
}

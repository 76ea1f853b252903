package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCorpus() []Document {
	return []Document{
		{ID: "graphs", Text: "shortest path dijkstra graph edges weighted bfs"},
		{ID: "dp", Text: "dynamic programming knapsack memoization subproblem"},
		{ID: "strings", Text: "string matching suffix automaton prefix hashing"},
		{ID: "graphs2", Text: "graph traversal dfs bfs connected components"},
	}
}

func TestIndex_Search(t *testing.T) {
	t.Run("ranks matching documents first", func(t *testing.T) {
		ix := NewIndex(testCorpus())

		results := ix.Search("shortest path in a weighted graph", 2, nil)
		require.NotEmpty(t, results)
		assert.Equal(t, "graphs", results[0].ID)
		assert.Greater(t, results[0].Score, 0.0)
	})

	t.Run("respects k", func(t *testing.T) {
		ix := NewIndex(testCorpus())

		results := ix.Search("graph bfs", 1, nil)
		assert.Len(t, results, 1)
	})

	t.Run("excludes requested IDs", func(t *testing.T) {
		ix := NewIndex(testCorpus())

		results := ix.Search("graph bfs", 5, map[string]bool{"graphs": true})
		for _, r := range results {
			assert.NotEqual(t, "graphs", r.ID)
		}
		require.NotEmpty(t, results)
		assert.Equal(t, "graphs2", results[0].ID)
	})

	t.Run("no matches yields empty result", func(t *testing.T) {
		ix := NewIndex(testCorpus())

		assert.Empty(t, ix.Search("quantum chromodynamics", 3, nil))
	})

	t.Run("empty corpus", func(t *testing.T) {
		ix := NewIndex(nil)

		assert.Empty(t, ix.Search("anything", 3, nil))
	})

	t.Run("ties break by corpus order", func(t *testing.T) {
		ix := NewIndex([]Document{
			{ID: "a", Text: "alpha beta"},
			{ID: "b", Text: "alpha beta"},
		})

		results := ix.Search("alpha beta", 2, nil)
		require.Len(t, results, 2)
		assert.Equal(t, "a", results[0].ID)
		assert.Equal(t, "b", results[1].ID)
	})
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"two", "sum", "problem"}, Tokenize("Two  Sum\nProblem"))
	assert.Empty(t, Tokenize("   "))
}

package retrieval

// ProblemIndex ranks problems by similarity to one of its own entries. The
// corpus text of the target problem is the query.
type ProblemIndex struct {
	index *Index
	text  map[string]string
}

// NewProblemIndex builds a similarity index over problem documents.
func NewProblemIndex(docs []Document) *ProblemIndex {
	text := make(map[string]string, len(docs))
	for _, d := range docs {
		text[d.ID] = d.Text
	}
	return &ProblemIndex{index: NewIndex(docs), text: text}
}

// Similar returns the top-k problems most similar to problemID, excluding the
// target itself and any IDs in exclude (nil allowed). An unknown problemID
// returns nil.
func (pi *ProblemIndex) Similar(problemID string, k int, exclude map[string]bool) []Result {
	query, ok := pi.text[problemID]
	if !ok {
		return nil
	}
	ex := map[string]bool{problemID: true}
	for id := range exclude {
		ex[id] = true
	}
	return pi.index.Search(query, k, ex)
}

// TextIndex ranks free-text documents (textbook sections, guide concepts)
// against a caller-provided query.
type TextIndex struct {
	index *Index
}

// NewTextIndex builds a text index over docs.
func NewTextIndex(docs []Document) *TextIndex {
	return &TextIndex{index: NewIndex(docs)}
}

// Search returns the top-k documents for the query.
func (ti *TextIndex) Search(query string, k int) []Result {
	return ti.index.Search(query, k, nil)
}

// Len returns the corpus size.
func (ti *TextIndex) Len() int {
	return ti.index.Len()
}

package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Article is one textbook section.
type Article struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// GuideConcept is one example-problems entry under a difficulty tier.
type GuideConcept struct {
	Concept     string `json:"concept"`
	Explanation string `json:"explanation"`
}

// Guide maps a difficulty tier (bronze/silver/gold/platinum/advanced) to its
// concept entries.
type Guide map[string][]GuideConcept

// LoadStrategy reads the strategy document. The file is either a JSON object
// with a "content" field or a bare JSON string.
func LoadStrategy(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "strategy.json"))
	if err != nil {
		return "", fmt.Errorf("read strategy document: %w", err)
	}

	var doc struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &doc); err == nil && doc.Content != "" {
		return doc.Content, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s, nil
	}
	return "", fmt.Errorf("strategy document has unrecognized shape")
}

// LoadTextbook reads the textbook corpus: a JSON array of articles, or an
// object mapping title → content.
func LoadTextbook(dir string) ([]Article, error) {
	data, err := os.ReadFile(filepath.Join(dir, "textbook.json"))
	if err != nil {
		return nil, fmt.Errorf("read textbook corpus: %w", err)
	}

	var articles []Article
	if err := json.Unmarshal(data, &articles); err == nil {
		return articles, nil
	}

	var byTitle map[string]string
	if err := json.Unmarshal(data, &byTitle); err != nil {
		return nil, fmt.Errorf("textbook corpus has unrecognized shape: %w", err)
	}
	titles := make([]string, 0, len(byTitle))
	for t := range byTitle {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	articles = make([]Article, len(titles))
	for i, t := range titles {
		articles[i] = Article{Title: t, Content: byTitle[t]}
	}
	return articles, nil
}

// LoadGuide reads the guide corpus: difficulty tier → concept entries.
func LoadGuide(dir string) (Guide, error) {
	data, err := os.ReadFile(filepath.Join(dir, "guide.json"))
	if err != nil {
		return nil, fmt.Errorf("read guide corpus: %w", err)
	}

	var g Guide
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("guide corpus has unrecognized shape: %w", err)
	}
	return g, nil
}

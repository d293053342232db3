// Package kbsearch ranks fetched knowledge-base articles locally, for the
// offline search surface of the CLI. This is relevance search, distinct from
// the exact-substring filter selectors in the store package.
package kbsearch

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/smarthelp/deskclient/internal/model"
)

type Hit struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Index is an in-memory inverted n-gram index over articles. Title and tag
// grams weigh double the body grams. Safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	articles map[string]model.Article
	// gram -> article id -> weighted count
	postings map[string]map[string]int
	// per-article weighted gram counts, for consistent replace/delete
	gramsByDoc map[string]map[string]int
	n          int
}

func New() *Index {
	return &Index{
		articles:   map[string]model.Article{},
		postings:   map[string]map[string]int{},
		gramsByDoc: map[string]map[string]int{},
		n:          2,
	}
}

// Put inserts or replaces an article, keeping the index consistent with the
// previous content (no gram leakage from an earlier version).
func (ix *Index) Put(a model.Article) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.putLocked(a)
}

func (ix *Index) putLocked(a model.Article) {
	ix.removeLocked(a.ID)
	grams := weightedGrams(a, ix.n)
	for g, c := range grams {
		if ix.postings[g] == nil {
			ix.postings[g] = map[string]int{}
		}
		ix.postings[g][a.ID] += c
	}
	ix.articles[a.ID] = a
	ix.gramsByDoc[a.ID] = grams
}

// Delete removes an article; unknown ids are a no-op.
func (ix *Index) Delete(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(id)
	delete(ix.articles, id)
	delete(ix.gramsByDoc, id)
}

// Rebuild replaces the whole index with the given collection, mirroring the
// store's wholesale FetchAll semantics. The lock is held for the entire swap
// so a concurrent Search never observes a half-built index.
func (ix *Index) Rebuild(articles []model.Article) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.articles = make(map[string]model.Article, len(articles))
	ix.postings = map[string]map[string]int{}
	ix.gramsByDoc = map[string]map[string]int{}
	for _, a := range articles {
		ix.putLocked(a)
	}
}

// Search scores articles against the query via n-gram overlap with IDF
// weighting, falling back to plain substring scoring when the query is too
// short to produce grams or nothing matched. Results are sorted by score
// descending and truncated to limit.
func (ix *Index) Search(q string, limit int) []Hit {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return []Hit{}
	}
	if limit <= 0 {
		limit = 10
	}
	scores := ix.gramScoresLocked(toNGrams(q, ix.n))
	if len(scores) == 0 {
		scores = ix.substringScoresLocked(q)
	}
	hits := make([]Hit, 0, len(scores))
	for id, s := range scores {
		a := ix.articles[id]
		hits = append(hits, Hit{ID: a.ID, Title: a.Title, Snippet: snippet(a.Body, 120), Score: s})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func (ix *Index) gramScoresLocked(grams []string) map[string]float64 {
	if len(grams) == 0 || len(ix.articles) == 0 {
		return nil
	}
	uniq := map[string]struct{}{}
	for _, g := range grams {
		uniq[g] = struct{}{}
	}
	numDocs := float64(len(ix.articles))
	scores := map[string]float64{}
	for g := range uniq {
		posting := ix.postings[g]
		if len(posting) == 0 {
			continue
		}
		idf := 1.0 + math.Log((1.0+numDocs)/(1.0+float64(len(posting))))
		for id, c := range posting {
			scores[id] += float64(c) * idf
		}
	}
	return scores
}

func (ix *Index) substringScoresLocked(q string) map[string]float64 {
	scores := map[string]float64{}
	for id, a := range ix.articles {
		s := 0.0
		if strings.Contains(strings.ToLower(a.Title), q) {
			s += 2
		}
		if strings.Contains(strings.ToLower(a.Body), q) {
			s += 1
		}
		for _, tag := range a.Tags {
			if strings.Contains(strings.ToLower(tag), q) {
				s += 2
				break
			}
		}
		if s > 0 {
			scores[id] = s
		}
	}
	return scores
}

func (ix *Index) removeLocked(id string) {
	for g, c := range ix.gramsByDoc[id] {
		if posting := ix.postings[g]; posting != nil {
			posting[id] -= c
			if posting[id] <= 0 {
				delete(posting, id)
			}
			if len(posting) == 0 {
				delete(ix.postings, g)
			}
		}
	}
}

func weightedGrams(a model.Article, n int) map[string]int {
	grams := map[string]int{}
	add := func(s string, weight int) {
		for _, g := range toNGrams(s, n) {
			grams[g] += weight
		}
	}
	add(a.Title, 2)
	add(a.Body, 1)
	for _, tag := range a.Tags {
		add(tag, 2)
	}
	return grams
}

// toNGrams produces lowercased overlapping n-grams after stripping spaces
// and punctuation.
func toNGrams(s string, n int) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}
	norm := []rune(b.String())
	if len(norm) < n {
		return nil
	}
	grams := make([]string, 0, len(norm)-n+1)
	for i := 0; i <= len(norm)-n; i++ {
		grams = append(grams, string(norm[i:i+n]))
	}
	return grams
}

func snippet(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

package kbsearch

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/smarthelp/deskclient/internal/model"
)

func TestPutAndSearch(t *testing.T) {
	ix := New()
	articles := []model.Article{
		{ID: "1", Title: "Password reset guide", Body: "How to reset a forgotten password"},
		{ID: "2", Title: "Billing overview", Body: "Invoices, refunds and password-protected receipts"},
		{ID: "3", Title: "Shipping FAQ", Body: "Delivery windows and carriers", Tags: []string{"logistics"}},
	}
	for _, a := range articles {
		ix.Put(a)
	}

	// empty query returns empty
	if hits := ix.Search("  ", 10); len(hits) != 0 {
		t.Fatalf("expected empty result, got %+v", hits)
	}

	hits := ix.Search("password", 10)
	if len(hits) < 2 {
		t.Fatalf("expected at least 2 hits, got %d", len(hits))
	}
	// ordered by score desc, title matches outrank body matches
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Fatalf("not sorted desc at %d: %f > %f", i, hits[i].Score, hits[i-1].Score)
		}
	}
	if hits[0].ID != "1" {
		t.Fatalf("expected title match ranked first, got %+v", hits[0])
	}

	// limit
	if hits := ix.Search("password", 1); len(hits) != 1 {
		t.Fatalf("expected limit=1, got %d", len(hits))
	}
}

func TestTagsAreSearchable(t *testing.T) {
	ix := New()
	ix.Put(model.Article{ID: "1", Title: "Carrier list", Body: "Supported carriers", Tags: []string{"logistics"}})
	ix.Put(model.Article{ID: "2", Title: "Refund policy", Body: "Thirty days"})

	hits := ix.Search("logistics", 10)
	if len(hits) != 1 || hits[0].ID != "1" {
		t.Fatalf("expected tag hit for article 1, got %+v", hits)
	}
}

func TestUpdateAndDeleteIndexConsistency(t *testing.T) {
	ix := New()
	ix.Put(model.Article{ID: "x1", Title: "Install guide", Body: "Installation walkthrough"})
	if hits := ix.Search("install", 10); len(hits) == 0 {
		t.Fatalf("expected hits before update")
	}

	// replace with unrelated content; the old grams must not linger
	ix.Put(model.Article{ID: "x1", Title: "Troubleshooting", Body: "Diagnostics handbook"})
	if hits := ix.Search("install", 10); len(hits) != 0 {
		t.Fatalf("expected 0 hits after update, got %+v", hits)
	}
	if hits := ix.Search("troubleshooting", 10); len(hits) == 0 {
		t.Fatalf("expected hits for the new content")
	}

	ix.Delete("x1")
	if hits := ix.Search("troubleshooting", 10); len(hits) != 0 {
		t.Fatalf("expected 0 hits after delete, got %+v", hits)
	}
	// deleting an unknown id is a no-op
	ix.Delete("ghost")
}

func TestRebuildReplacesEverything(t *testing.T) {
	ix := New()
	ix.Put(model.Article{ID: "old", Title: "Legacy article", Body: "Outdated"})
	ix.Rebuild([]model.Article{
		{ID: "new1", Title: "Fresh article", Body: "Current"},
	})
	if hits := ix.Search("legacy", 10); len(hits) != 0 {
		t.Fatalf("rebuild must drop prior content, got %+v", hits)
	}
	if hits := ix.Search("fresh", 10); len(hits) != 1 || hits[0].ID != "new1" {
		t.Fatalf("expected rebuilt content, got %+v", hits)
	}
}

func TestRebuildIsAtomicUnderConcurrentSearch(t *testing.T) {
	generation := func(tag string) []model.Article {
		return []model.Article{
			{ID: "1", Title: "Billing handbook " + tag, Body: "invoices"},
			{ID: "2", Title: "Shipping handbook " + tag, Body: "carriers"},
			{ID: "3", Title: "Returns handbook " + tag, Body: "refunds"},
		}
	}
	ix := New()
	ix.Rebuild(generation("a"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				ix.Rebuild(generation("b"))
			} else {
				ix.Rebuild(generation("a"))
			}
		}
	}()

	// every article in every generation matches "handbook"; a reader must
	// always see a whole generation, never a partially rebuilt index
	for {
		select {
		case <-done:
			return
		default:
		}
		if hits := ix.Search("handbook", 10); len(hits) != 3 {
			t.Fatalf("observed partially rebuilt index: %d hits", len(hits))
		}
	}
}

func TestShortQueryFallsBackToSubstring(t *testing.T) {
	ix := New()
	ix.Put(model.Article{ID: "1", Title: "Q&A", Body: "Common questions"})
	// a single rune produces no bigrams; substring fallback still matches
	if hits := ix.Search("q", 10); len(hits) != 1 {
		t.Fatalf("expected fallback hit, got %+v", hits)
	}
}

func TestSnippetIsBounded(t *testing.T) {
	ix := New()
	long := strings.Repeat("客服系统很重要。", 40)
	ix.Put(model.Article{ID: "u1", Title: "关于客服", Body: long})

	hits := ix.Search("客服", 1)
	if len(hits) == 0 {
		t.Fatalf("expected hit for 客服")
	}
	sn := hits[0].Snippet
	if !utf8.ValidString(sn) {
		t.Fatalf("snippet is not valid utf8")
	}
	if rc := utf8.RuneCountInString(sn); rc > 120 {
		t.Fatalf("snippet rune count %d > 120", rc)
	}
}

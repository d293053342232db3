package store

import (
	"context"
	"testing"

	"github.com/smarthelp/deskclient/internal/model"
)

func seedArticles(b *fakeBackend, n int) {
	for i := 0; i < n; i++ {
		b.articles = append(b.articles, model.Article{
			ID: b.newID("kb"), Title: "seeded", Body: "body", Status: model.ArticlePublished,
		})
	}
}

func TestArticleCreatePrepends(t *testing.T) {
	b := &fakeBackend{}
	seedArticles(b, 2)
	base := startBackend(t, b)
	st := newTestStore(t, base, credFile(t))
	ctx := context.Background()

	if _, err := st.KnowledgeBase.FetchAll(ctx, ArticleFilter{}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	a, err := st.KnowledgeBase.Create(ctx, ArticleInput{
		Title: "Resetting passwords", Body: "Click forgot password.",
		Tags: []string{"auth"}, Status: model.ArticleDraft,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	local := st.KnowledgeBase.Articles()
	if len(local) != 3 || local[0].ID != a.ID {
		t.Fatalf("expected new article at head, got %+v", local)
	}
}

func TestFetchAllFailureKeepsStaleArticles(t *testing.T) {
	b := &fakeBackend{}
	seedArticles(b, 2)
	base := startBackend(t, b)
	st := newTestStore(t, base, credFile(t))
	ctx := context.Background()

	if _, err := st.KnowledgeBase.FetchAll(ctx, ArticleFilter{}); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	b.mu.Lock()
	b.failLists = true
	b.mu.Unlock()
	if _, err := st.KnowledgeBase.FetchAll(ctx, ArticleFilter{}); err == nil {
		t.Fatalf("expected refresh failure")
	}

	if got := st.KnowledgeBase.Articles(); len(got) != 2 {
		t.Fatalf("stale data must stay visible, got %d articles", len(got))
	}
	state := st.KnowledgeBase.State()
	if state.Loading || state.Error != "backend unavailable" {
		t.Fatalf("expected settled error state, got %+v", state)
	}
}

func TestArticleUpdateReplacesInPlace(t *testing.T) {
	b := &fakeBackend{}
	seedArticles(b, 2)
	base := startBackend(t, b)
	st := newTestStore(t, base, credFile(t))
	ctx := context.Background()

	if _, err := st.KnowledgeBase.FetchAll(ctx, ArticleFilter{}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := st.KnowledgeBase.Update(ctx, "kb1", ArticleInput{
		Title: "Renamed", Body: "new body", Status: model.ArticlePublished,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	local := st.KnowledgeBase.Articles()
	if local[0].ID != "kb1" || local[0].Title != "Renamed" {
		t.Fatalf("expected in-place replace preserving order, got %+v", local)
	}

	// updates for ids not held locally are dropped, never inserted
	if _, err := st.KnowledgeBase.Update(ctx, "ghost", ArticleInput{
		Title: "Ghost", Body: "boo", Status: model.ArticleDraft,
	}); err != nil {
		t.Fatalf("update ghost: %v", err)
	}
	if got := st.KnowledgeBase.Articles(); len(got) != 2 {
		t.Fatalf("silent drop violated: %+v", got)
	}
}

func TestArticleDeleteIsIdempotent(t *testing.T) {
	b := &fakeBackend{}
	seedArticles(b, 2)
	base := startBackend(t, b)
	st := newTestStore(t, base, credFile(t))
	ctx := context.Background()

	if _, err := st.KnowledgeBase.FetchAll(ctx, ArticleFilter{}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if err := st.KnowledgeBase.Delete(ctx, "kb2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := st.KnowledgeBase.Articles(); len(got) != 1 || got[0].ID != "kb1" {
		t.Fatalf("expected kb2 removed, got %+v", got)
	}
	// deleting again is a no-op, not an error
	if err := st.KnowledgeBase.Delete(ctx, "kb2"); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
	if got := st.KnowledgeBase.Articles(); len(got) != 1 {
		t.Fatalf("repeat delete changed state: %+v", got)
	}
}

func TestConfigFetchAndUpdate(t *testing.T) {
	b := &fakeBackend{config: model.SystemConfig{
		AutoCloseEnabled: false, ConfidenceThreshold: 0.5, SLAHours: 24,
	}}
	base := startBackend(t, b)
	st := newTestStore(t, base, credFile(t))
	ctx := context.Background()

	if st.Config.Config() != nil {
		t.Fatalf("expected nil config before first fetch")
	}
	cfg, err := st.Config.Fetch(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if cfg.SLAHours != 24 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	enabled := true
	threshold := 0.8
	updated, err := st.Config.Update(ctx, UpdateConfigInput{
		AutoCloseEnabled: &enabled, ConfidenceThreshold: &threshold,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.AutoCloseEnabled || updated.ConfidenceThreshold != 0.8 || updated.SLAHours != 24 {
		t.Fatalf("expected partial update merged server-side, got %+v", updated)
	}
	if local := st.Config.Config(); local == nil || !local.AutoCloseEnabled {
		t.Fatalf("expected local singleton replaced, got %+v", local)
	}
}

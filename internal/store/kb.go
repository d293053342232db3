package store

import (
	"context"
	"net/url"
	"sync"

	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/smarthelp/deskclient/internal/api"
	"github.com/smarthelp/deskclient/internal/common"
	"github.com/smarthelp/deskclient/internal/model"
	"github.com/smarthelp/deskclient/internal/observability"
)

// KBSlice owns the knowledge-base article collection. Article CRUD is an
// admin capability; the slice itself does not gate on role (see
// CapabilitiesFor for the caller-side gate).
type KBSlice struct {
	mu  sync.Mutex
	lc  lifecycle
	api *api.Client

	articles []model.Article
}

type ArticleFilter struct {
	Query  string
	Status model.ArticleStatus
}

func (f ArticleFilter) query() string {
	q := url.Values{}
	if f.Query != "" {
		q.Set("query", f.Query)
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

type ArticleInput struct {
	Title  string              `json:"title" validate:"required"`
	Body   string              `json:"body" validate:"required"`
	Tags   []string            `json:"tags"`
	Status model.ArticleStatus `json:"status" validate:"required,oneof=draft published"`
}

func newKBSlice(c *api.Client) *KBSlice {
	return &KBSlice{api: c}
}

// FetchAll replaces the whole local collection with the server's response.
func (k *KBSlice) FetchAll(ctx context.Context, f ArticleFilter) ([]model.Article, error) {
	k.mu.Lock()
	stamp := k.lc.begin()
	k.mu.Unlock()

	var list []model.Article
	err := k.api.JSON(ctx, consts.MethodGet, pathKB+f.query(), nil, &list)

	k.mu.Lock()
	defer k.mu.Unlock()
	if err != nil {
		k.lc.reject(stamp, common.Message(err))
		return nil, err
	}
	if k.lc.fulfill(stamp) {
		k.articles = list
	}
	return list, nil
}

// Create prepends the new article (most-recent-first ordering).
func (k *KBSlice) Create(ctx context.Context, in ArticleInput) (*model.Article, error) {
	k.mu.Lock()
	stamp := k.lc.begin()
	k.mu.Unlock()

	var created model.Article
	err := k.api.JSON(ctx, consts.MethodPost, pathKB, in, &created)

	k.mu.Lock()
	defer k.mu.Unlock()
	if err != nil {
		k.lc.reject(stamp, common.Message(err))
		return nil, err
	}
	if k.lc.fulfill(stamp) {
		k.articles = append([]model.Article{created}, k.articles...)
	}
	observability.ArticlesCreated.Inc()
	return &created, nil
}

// Update replaces the matching local article wholesale with the server's
// representation; an update for an id not held locally is silently dropped.
func (k *KBSlice) Update(ctx context.Context, id string, in ArticleInput) (*model.Article, error) {
	k.mu.Lock()
	stamp := k.lc.begin()
	k.mu.Unlock()

	var updated model.Article
	err := k.api.JSON(ctx, consts.MethodPut, pathKB+"/"+id, in, &updated)

	k.mu.Lock()
	defer k.mu.Unlock()
	if err != nil {
		k.lc.reject(stamp, common.Message(err))
		return nil, err
	}
	if k.lc.fulfill(stamp) {
		for i := range k.articles {
			if k.articles[i].ID == updated.ID {
				k.articles[i] = updated
				break
			}
		}
	}
	return &updated, nil
}

// Delete removes the article locally by id; deleting an already-absent id is
// a no-op with no error.
func (k *KBSlice) Delete(ctx context.Context, id string) error {
	k.mu.Lock()
	stamp := k.lc.begin()
	k.mu.Unlock()

	err := k.api.JSON(ctx, consts.MethodDelete, pathKB+"/"+id, nil, nil)

	k.mu.Lock()
	defer k.mu.Unlock()
	if err != nil {
		k.lc.reject(stamp, common.Message(err))
		return err
	}
	if k.lc.fulfill(stamp) {
		kept := k.articles[:0]
		for _, a := range k.articles {
			if a.ID != id {
				kept = append(kept, a)
			}
		}
		k.articles = kept
	}
	return nil
}

// Articles returns a copy of the local collection.
func (k *KBSlice) Articles() []model.Article {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]model.Article(nil), k.articles...)
}

func (k *KBSlice) State() SliceState {
	k.mu.Lock()
	defer k.mu.Unlock()
	return SliceState{Loading: k.lc.loading, Error: k.lc.err}
}

func (k *KBSlice) ClearError() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.lc.err = ""
}

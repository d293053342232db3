// Package store is the client-side state layer of the helpdesk: four
// resource slices (session, tickets, knowledge base, config) behind one
// owned Store object. All mutation goes through slice operations; accessors
// hand out copies. The Store lives for the life of the process and is
// injected into callers rather than held as a package singleton.
package store

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/smarthelp/deskclient/internal/api"
	"github.com/smarthelp/deskclient/internal/common"
	"github.com/smarthelp/deskclient/internal/credstore"
	"github.com/smarthelp/deskclient/internal/model"
	"github.com/smarthelp/deskclient/internal/suggest"
)

type Store struct {
	Session       *SessionSlice
	Tickets       *TicketsSlice
	KnowledgeBase *KBSlice
	Config        *ConfigSlice
}

type options struct {
	resolver *suggest.Resolver
}

type Option func(*options)

// WithResolver overrides the suggestion resolver, used by tests to inject a
// fake clock or tightened retry policy.
func WithResolver(r *suggest.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// New assembles the store. The session slice becomes the adapter's token
// source, so every subsequent request carries the live credential.
func New(c *api.Client, creds *credstore.Store, opts ...Option) *Store {
	var o options
	for _, op := range opts {
		op(&o)
	}
	s := &Store{}
	s.Session = newSessionSlice(c, creds)
	c.SetTokenSource(s.Session.Token)

	resolver := o.resolver
	if resolver == nil {
		resolver = suggest.New(SuggestionFetcher(c))
	}
	s.Tickets = newTicketsSlice(c, resolver)
	s.KnowledgeBase = newKBSlice(c)
	s.Config = newConfigSlice(c)
	return s
}

// FromConfig builds a store wired from the process configuration.
func FromConfig(cfg *common.Config) (*Store, error) {
	c, err := api.New(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	resolver := suggest.New(SuggestionFetcher(c),
		suggest.WithMaxAttempts(cfg.PollMaxAttempts),
		suggest.WithBaseDelay(time.Duration(cfg.PollBaseDelayMS)*time.Millisecond),
		suggest.WithCacheTTL(time.Duration(cfg.SuggestionTTLSec)*time.Second),
	)
	return New(c, credstore.New(cfg.CredentialPath), WithResolver(resolver)), nil
}

// SuggestionFetcher adapts the suggestion endpoint into the resolver's fetch
// contract. An empty or null body decodes to a nil suggestion, which the
// resolver treats as "not ready yet".
func SuggestionFetcher(c *api.Client) suggest.FetchFunc {
	return func(ctx context.Context, ticketID string) (*model.AgentSuggestion, error) {
		var s *model.AgentSuggestion
		if err := c.JSON(ctx, consts.MethodGet, pathSuggestion+"/"+ticketID, nil, &s); err != nil {
			return nil, err
		}
		return s, nil
	}
}

package store

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"github.com/smarthelp/deskclient/internal/api"
	"github.com/smarthelp/deskclient/internal/common"
	"github.com/smarthelp/deskclient/internal/model"
	"github.com/smarthelp/deskclient/internal/observability"
	"github.com/smarthelp/deskclient/internal/suggest"
)

// TicketsSlice owns the ticket collection and the currently opened detail.
// Tickets are never deleted locally; their lifecycle ends server-side.
type TicketsSlice struct {
	mu       sync.Mutex
	lc       lifecycle
	api      *api.Client
	resolver *suggest.Resolver

	tickets []model.Ticket
	current *model.TicketDetail
}

type TicketFilter struct {
	Status model.TicketStatus
	Mine   bool
}

func (f TicketFilter) query() string {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Mine {
		q.Set("mine", "true")
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// CreateTicketInput carries the /tickets payload. Required-field presence is
// enforced by the caller; the slice does not re-validate.
type CreateTicketInput struct {
	Title       string               `json:"title" validate:"required"`
	Description string               `json:"description" validate:"required"`
	Category    model.TicketCategory `json:"category,omitempty"`
}

type ReplyInput struct {
	Message string `json:"message" validate:"required"`
	Close   bool   `json:"close,omitempty"`
	Reopen  bool   `json:"reopen,omitempty"`
}

// UpdateSuggestionInput edits a resolved suggestion. Nil fields are omitted
// from the payload and left untouched server-side.
type UpdateSuggestionInput struct {
	DraftReply *string  `json:"draftReply,omitempty"`
	ArticleIDs []string `json:"articleIds,omitempty"`
}

func newTicketsSlice(c *api.Client, r *suggest.Resolver) *TicketsSlice {
	return &TicketsSlice{api: c, resolver: r}
}

// FetchAll replaces the whole local collection with the server's response;
// there is no incremental merge. On failure the collection is left untouched.
func (t *TicketsSlice) FetchAll(ctx context.Context, f TicketFilter) ([]model.Ticket, error) {
	t.mu.Lock()
	stamp := t.lc.begin()
	t.mu.Unlock()

	var list []model.Ticket
	err := t.api.JSON(ctx, consts.MethodGet, pathTickets+f.query(), nil, &list)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.lc.reject(stamp, common.Message(err))
		return nil, err
	}
	if t.lc.fulfill(stamp) {
		t.tickets = list
	}
	return list, nil
}

func (t *TicketsSlice) FetchDetail(ctx context.Context, id string) (*model.TicketDetail, error) {
	t.mu.Lock()
	stamp := t.lc.begin()
	t.mu.Unlock()

	var detail model.TicketDetail
	err := t.api.JSON(ctx, consts.MethodGet, pathTickets+"/"+id, nil, &detail)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.lc.reject(stamp, common.Message(err))
		return nil, err
	}
	if t.lc.fulfill(stamp) {
		t.current = &detail
	}
	return &detail, nil
}

// Create posts a new ticket and inserts it at the head of the local
// collection (most-recent-first policy, independent of server ordering).
// It then polls for the AI suggestion; resolution failure is non-fatal, the
// ticket is returned either way with a possibly nil suggestion.
func (t *TicketsSlice) Create(ctx context.Context, in CreateTicketInput) (*model.Ticket, *model.AgentSuggestion, error) {
	t.mu.Lock()
	stamp := t.lc.begin()
	t.mu.Unlock()

	var created model.Ticket
	err := t.api.JSON(ctx, consts.MethodPost, pathTickets, in, &created)

	t.mu.Lock()
	if err != nil {
		t.lc.reject(stamp, common.Message(err))
		t.mu.Unlock()
		return nil, nil, err
	}
	if t.lc.fulfill(stamp) {
		t.tickets = append([]model.Ticket{created}, t.tickets...)
	}
	t.mu.Unlock()
	observability.TicketsCreated.Inc()

	suggestion, rerr := t.resolver.Resolve(ctx, created.ID)
	if rerr != nil && !errors.Is(rerr, suggest.ErrNoSuggestion) {
		common.L().Warn("suggestion resolution aborted",
			zap.String("ticket_id", created.ID), zap.Error(rerr))
	}

	t.mu.Lock()
	t.current = &model.TicketDetail{Ticket: created, Suggestion: suggestion}
	t.mu.Unlock()
	return &created, suggestion, nil
}

// Reply posts a message (optionally closing or reopening the ticket) and
// discards the cached detail so the next read refetches fresh state.
func (t *TicketsSlice) Reply(ctx context.Context, id string, in ReplyInput) error {
	t.mu.Lock()
	stamp := t.lc.begin()
	t.mu.Unlock()

	err := t.api.JSON(ctx, consts.MethodPost, pathTickets+"/"+id+"/reply", in, nil)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.lc.reject(stamp, common.Message(err))
		return err
	}
	if t.lc.fulfill(stamp) {
		t.current = nil
	}
	return nil
}

// Assign sets the ticket's assignee and replaces the matching local entity
// wholesale with the server's representation. If no local entity with that
// id exists the update is silently dropped, never inserted.
func (t *TicketsSlice) Assign(ctx context.Context, id, assigneeID string) (*model.Ticket, error) {
	t.mu.Lock()
	stamp := t.lc.begin()
	t.mu.Unlock()

	var updated model.Ticket
	err := t.api.JSON(ctx, consts.MethodPost, pathTickets+"/"+id+"/assign",
		map[string]string{"assigneeId": assigneeID}, &updated)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.lc.reject(stamp, common.Message(err))
		return nil, err
	}
	if t.lc.fulfill(stamp) {
		t.replaceLocked(updated)
	}
	return &updated, nil
}

func (t *TicketsSlice) replaceLocked(updated model.Ticket) {
	for i := range t.tickets {
		if t.tickets[i].ID == updated.ID {
			t.tickets[i] = updated
			break
		}
	}
	if t.current != nil && t.current.Ticket.ID == updated.ID {
		t.current.Ticket = updated
	}
}

// FetchSuggestion runs the same bounded poll used during Create, standalone.
// Re-opening a ticket's AI detail view lands here.
func (t *TicketsSlice) FetchSuggestion(ctx context.Context, ticketID string) (*model.AgentSuggestion, error) {
	s, err := t.resolver.Resolve(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		t.current.Suggestion = s
	} else {
		t.current = &model.TicketDetail{Suggestion: s}
	}
	return s, nil
}

// UpdateSuggestion edits a suggestion's draft reply and article references.
func (t *TicketsSlice) UpdateSuggestion(ctx context.Context, suggestionID string, in UpdateSuggestionInput) (*model.AgentSuggestion, error) {
	t.mu.Lock()
	stamp := t.lc.begin()
	t.mu.Unlock()

	var updated model.AgentSuggestion
	err := t.api.JSON(ctx, consts.MethodPut, pathSuggestion+"/"+suggestionID, in, &updated)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.lc.reject(stamp, common.Message(err))
		return nil, err
	}
	if t.lc.fulfill(stamp) {
		if t.current != nil {
			t.current.Suggestion = &updated
		}
		t.resolver.Forget(updated.TicketID)
	}
	return &updated, nil
}

// FetchAudit loads the ticket's audit trail into the cached detail.
func (t *TicketsSlice) FetchAudit(ctx context.Context, ticketID string) ([]model.AuditLog, error) {
	var audit []model.AuditLog
	err := t.api.JSON(ctx, consts.MethodGet, pathTickets+"/"+ticketID+"/audit", nil, &audit)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil && t.current.Ticket.ID == ticketID {
		t.current.Audit = audit
	}
	return audit, nil
}

// Tickets returns a copy of the local collection.
func (t *TicketsSlice) Tickets() []model.Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]model.Ticket(nil), t.tickets...)
}

// Current returns a shallow copy of the opened ticket detail, or nil.
func (t *TicketsSlice) Current() *model.TicketDetail {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return nil
	}
	d := *t.current
	return &d
}

func (t *TicketsSlice) ClearCurrent() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = nil
}

func (t *TicketsSlice) State() SliceState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return SliceState{Loading: t.lc.loading, Error: t.lc.err}
}

func (t *TicketsSlice) ClearError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lc.err = ""
}

package store

import (
	"strings"

	"github.com/smarthelp/deskclient/internal/model"
)

// Derived view selectors: pure functions over slice state, recomputed by the
// caller on every state change. None of them mutate their input.

// StatusAll is the sentinel that disables status filtering.
const StatusAll = "all"

// VisibleTickets scopes the collection by role: agents and admins see all
// tickets, plain users only the ones they created. An unauthenticated viewer
// sees nothing.
func VisibleTickets(tickets []model.Ticket, viewer *model.User) []model.Ticket {
	if viewer == nil {
		return nil
	}
	if CapabilitiesFor(viewer.Role).CanViewAllTickets {
		return tickets
	}
	out := make([]model.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t.CreatedBy == viewer.ID {
			out = append(out, t)
		}
	}
	return out
}

// CountByStatus aggregates ticket counts per status; every known status is
// present in the result, zero-valued when unused.
func CountByStatus(tickets []model.Ticket) map[model.TicketStatus]int {
	counts := make(map[model.TicketStatus]int, len(model.TicketStatuses))
	for _, s := range model.TicketStatuses {
		counts[s] = 0
	}
	for _, t := range tickets {
		counts[t.Status]++
	}
	return counts
}

// FilterTickets composes the free-text filter (case-insensitive substring on
// the title) and the status filter ("" or "all" disables it) with AND.
func FilterTickets(tickets []model.Ticket, query, status string) []model.Ticket {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if !statusMatches(string(t.Status), status) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(t.Title), q) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// FilterArticles matches the query against title, body and tags.
func FilterArticles(articles []model.Article, query, status string) []model.Article {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		if !statusMatches(string(a.Status), status) {
			continue
		}
		if q != "" && !articleMatches(a, q) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func articleMatches(a model.Article, q string) bool {
	if strings.Contains(strings.ToLower(a.Title), q) || strings.Contains(strings.ToLower(a.Body), q) {
		return true
	}
	for _, tag := range a.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func statusMatches(have, want string) bool {
	return want == "" || want == StatusAll || have == want
}

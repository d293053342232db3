package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/smarthelp/deskclient/internal/api"
	"github.com/smarthelp/deskclient/internal/credstore"
	"github.com/smarthelp/deskclient/internal/model"
	"github.com/smarthelp/deskclient/internal/suggest"
)

// instantClock makes the resolver's backoff free in tests.
type instantClock struct{}

func (instantClock) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// fakeBackend is an in-process stand-in for the helpdesk REST API.
type fakeBackend struct {
	mu sync.Mutex

	tickets  []model.Ticket
	articles []model.Article
	config   model.SystemConfig
	nextID   int

	// suggestion polls answered with null before one becomes available
	suggestionNullPolls int
	suggestionPolls     int

	// when set, list endpoints answer 500 instead of data
	failLists bool

	lastAuth        string
	lastTicketQuery string
}

func (b *fakeBackend) newID(prefix string) string {
	b.nextID++
	return fmt.Sprintf("%s%d", prefix, b.nextID)
}

func bindJSON(c *app.RequestContext, out any) error {
	body, err := c.Body()
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// startBackend boots a hertz server on an ephemeral port and returns its base
// URL. The listener-first dance avoids racing another process for the port.
func startBackend(t *testing.T, b *fakeBackend) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	h := server.New(server.WithHostPorts(addr))

	auth := func(c *app.RequestContext) {
		b.mu.Lock()
		b.lastAuth = string(c.GetHeader("Authorization"))
		b.mu.Unlock()
	}

	h.POST("/auth/login", func(_ context.Context, c *app.RequestContext) {
		var in struct{ Email, Password string }
		_ = bindJSON(c, &in)
		if in.Password == "wrong" {
			c.JSON(consts.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		role := model.RoleUser
		if strings.HasPrefix(in.Email, "agent") {
			role = model.RoleAgent
		}
		c.JSON(consts.StatusOK, model.AuthResponse{
			Token: "tok-" + in.Email,
			User:  model.User{ID: "u-" + in.Email, Name: in.Email, Email: in.Email, Role: role},
		})
	})
	h.POST("/auth/register", func(_ context.Context, c *app.RequestContext) {
		var in RegisterInput
		_ = bindJSON(c, &in)
		role := in.Role
		if role == "" {
			role = model.RoleUser
		}
		c.JSON(consts.StatusOK, model.AuthResponse{
			Token: "tok-" + in.Email,
			User:  model.User{ID: "u-" + in.Email, Name: in.Name, Email: in.Email, Role: role},
		})
	})

	h.GET("/tickets", func(_ context.Context, c *app.RequestContext) {
		auth(c)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.lastTicketQuery = string(c.URI().QueryString())
		if b.failLists {
			c.JSON(consts.StatusInternalServerError, map[string]string{"error": "backend unavailable"})
			return
		}
		out := b.tickets
		if status := c.Query("status"); status != "" {
			out = nil
			for _, tk := range b.tickets {
				if string(tk.Status) == status {
					out = append(out, tk)
				}
			}
		}
		c.JSON(consts.StatusOK, out)
	})
	h.POST("/tickets", func(_ context.Context, c *app.RequestContext) {
		auth(c)
		var in CreateTicketInput
		_ = bindJSON(c, &in)
		b.mu.Lock()
		defer b.mu.Unlock()
		tk := model.Ticket{
			ID:          b.newID("t"),
			Title:       in.Title,
			Description: in.Description,
			Category:    in.Category,
			Status:      model.StatusOpen,
			CreatedBy:   "u-me",
			CreatedAt:   time.Now().UTC(),
		}
		b.tickets = append(b.tickets, tk)
		c.JSON(consts.StatusCreated, tk)
	})
	h.GET("/tickets/:id", func(_ context.Context, c *app.RequestContext) {
		auth(c)
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, tk := range b.tickets {
			if tk.ID == c.Param("id") {
				c.JSON(consts.StatusOK, model.TicketDetail{Ticket: tk})
				return
			}
		}
		c.JSON(consts.StatusNotFound, map[string]string{"error": "ticket not found"})
	})
	h.POST("/tickets/:id/reply", func(_ context.Context, c *app.RequestContext) {
		auth(c)
		c.JSON(consts.StatusOK, map[string]string{"status": "ok"})
	})
	h.POST("/tickets/:id/assign", func(_ context.Context, c *app.RequestContext) {
		auth(c)
		var in struct {
			AssigneeID string `json:"assigneeId"`
		}
		_ = bindJSON(c, &in)
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.tickets {
			if b.tickets[i].ID == c.Param("id") {
				b.tickets[i].Assignee = in.AssigneeID
				b.tickets[i].Status = model.StatusTriaged
				c.JSON(consts.StatusOK, b.tickets[i])
				return
			}
		}
		// unknown server-side too: answer a representation anyway
		c.JSON(consts.StatusOK, model.Ticket{ID: c.Param("id"), Assignee: in.AssigneeID})
	})
	h.GET("/tickets/:id/audit", func(_ context.Context, c *app.RequestContext) {
		auth(c)
		c.JSON(consts.StatusOK, []model.AuditLog{
			{ID: "a1", TicketID: c.Param("id"), Actor: "agent", Action: "triage", Timestamp: time.Now().UTC()},
		})
	})

	h.GET("/agent/suggestion/:ticketId", func(_ context.Context, c *app.RequestContext) {
		auth(c)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.suggestionPolls++
		if b.suggestionPolls <= b.suggestionNullPolls {
			c.Data(consts.StatusOK, "application/json", []byte("null"))
			return
		}
		c.JSON(consts.StatusOK, model.AgentSuggestion{
			ID:         "sg-" + c.Param("ticketId"),
			TicketID:   c.Param("ticketId"),
			DraftReply: "suggested reply",
			Confidence: 0.9,
		})
	})
	h.PUT("/agent/suggestion/:id", func(_ context.Context, c *app.RequestContext) {
		auth(c)
		var in UpdateSuggestionInput
		_ = bindJSON(c, &in)
		out := model.AgentSuggestion{ID: c.Param("id"), TicketID: "t1", DraftReply: "suggested reply"}
		if in.DraftReply != nil {
			out.DraftReply = *in.DraftReply
		}
		out.ArticleIDs = in.ArticleIDs
		c.JSON(consts.StatusOK, out)
	})

	h.GET("/kb", func(_ context.Context, c *app.RequestContext) {
		auth(c)
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failLists {
			c.JSON(consts.StatusInternalServerError, map[string]string{"error": "backend unavailable"})
			return
		}
		c.JSON(consts.StatusOK, b.articles)
	})
	h.POST("/kb", func(_ context.Context, c *app.RequestContext) {
		auth(c)
		var in ArticleInput
		_ = bindJSON(c, &in)
		b.mu.Lock()
		defer b.mu.Unlock()
		a := model.Article{
			ID: b.newID("kb"), Title: in.Title, Body: in.Body,
			Tags: in.Tags, Status: in.Status, UpdatedAt: time.Now().UTC(),
		}
		b.articles = append(b.articles, a)
		c.JSON(consts.StatusCreated, a)
	})
	h.PUT("/kb/:id", func(_ context.Context, c *app.RequestContext) {
		auth(c)
		var in ArticleInput
		_ = bindJSON(c, &in)
		c.JSON(consts.StatusOK, model.Article{
			ID: c.Param("id"), Title: in.Title, Body: in.Body,
			Tags: in.Tags, Status: in.Status, UpdatedAt: time.Now().UTC(),
		})
	})
	h.DELETE("/kb/:id", func(_ context.Context, c *app.RequestContext) {
		auth(c)
		c.JSON(consts.StatusOK, map[string]string{"status": "ok"})
	})

	h.GET("/config", func(_ context.Context, c *app.RequestContext) {
		auth(c)
		b.mu.Lock()
		defer b.mu.Unlock()
		c.JSON(consts.StatusOK, b.config)
	})
	h.PUT("/config", func(_ context.Context, c *app.RequestContext) {
		auth(c)
		var in UpdateConfigInput
		_ = bindJSON(c, &in)
		b.mu.Lock()
		defer b.mu.Unlock()
		if in.AutoCloseEnabled != nil {
			b.config.AutoCloseEnabled = *in.AutoCloseEnabled
		}
		if in.ConfidenceThreshold != nil {
			b.config.ConfidenceThreshold = *in.ConfidenceThreshold
		}
		if in.SLAHours != nil {
			b.config.SLAHours = *in.SLAHours
		}
		c.JSON(consts.StatusOK, b.config)
	})

	go h.Spin()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})
	waitReady(t, addr)
	return "http://" + addr
}

func waitReady(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("backend at %s never became ready", addr)
}

// newTestStore assembles a store against the fake backend with the resolver's
// backoff made instant.
func newTestStore(t *testing.T, baseURL, credPath string) *Store {
	t.Helper()
	c, err := api.New(baseURL)
	if err != nil {
		t.Fatalf("api client: %v", err)
	}
	resolver := suggest.New(SuggestionFetcher(c),
		suggest.WithClock(instantClock{}), suggest.WithCacheTTL(0))
	return New(c, credstore.New(credPath), WithResolver(resolver))
}

func credFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "credentials.json")
}

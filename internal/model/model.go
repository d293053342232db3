package model

import (
	"encoding/json"
	"time"
)

// Role of an authenticated user. Role gates which store operations the
// surrounding UI should expose; see store.CapabilitiesFor.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
	RoleUser  Role = "user"
)

type TicketStatus string

const (
	StatusOpen         TicketStatus = "open"
	StatusTriaged      TicketStatus = "triaged"
	StatusWaitingHuman TicketStatus = "waiting_human"
	StatusResolved     TicketStatus = "resolved"
	StatusClosed       TicketStatus = "closed"
)

// TicketStatuses lists every lifecycle status in display order.
var TicketStatuses = []TicketStatus{
	StatusOpen, StatusTriaged, StatusWaitingHuman, StatusResolved, StatusClosed,
}

type TicketCategory string

const (
	CategoryBilling  TicketCategory = "billing"
	CategoryTech     TicketCategory = "tech"
	CategoryShipping TicketCategory = "shipping"
	CategoryOther    TicketCategory = "other"
)

type ArticleStatus string

const (
	ArticleDraft     ArticleStatus = "draft"
	ArticlePublished ArticleStatus = "published"
)

// The backend is Mongo-backed and identifies everything by "_id" in its JSON
// payloads; the wire tags below mirror that.

type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// AuthResponse is the body of both /auth/login and /auth/register.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Ticket struct {
	ID                string         `json:"_id"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Category          TicketCategory `json:"category"`
	Status            TicketStatus   `json:"status"`
	CreatedBy         string         `json:"createdBy"`
	Assignee          string         `json:"assignee,omitempty"`
	AgentSuggestionID string         `json:"agentSuggestionId,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// ArticleIDList normalizes suggestion article references at the decode
// boundary. The backend sometimes returns plain id strings and sometimes the
// populated article objects; consumers always see plain ids.
type ArticleIDList []string

func (l *ArticleIDList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var id string
		if err := json.Unmarshal(r, &id); err == nil {
			out = append(out, id)
			continue
		}
		var ref struct {
			ID string `json:"_id"`
		}
		if err := json.Unmarshal(r, &ref); err != nil {
			return err
		}
		out = append(out, ref.ID)
	}
	*l = out
	return nil
}

// ModelInfo describes the LLM run that produced a suggestion.
type ModelInfo struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	PromptVersion string `json:"promptVersion"`
	LatencyMs     int64  `json:"latencyMs,omitempty"`
}

// AgentSuggestion is produced asynchronously by the backend's triage agent.
// The client never creates one; it only polls for existence and may edit
// DraftReply/ArticleIDs afterwards.
type AgentSuggestion struct {
	ID                string         `json:"_id"`
	TicketID          string         `json:"ticketId"`
	PredictedCategory TicketCategory `json:"predictedCategory"`
	ArticleIDs        ArticleIDList  `json:"articleIds"`
	DraftReply        string         `json:"draftReply"`
	Confidence        float64        `json:"confidence"`
	AutoClosed        bool           `json:"autoClosed"`
	ModelInfo         ModelInfo      `json:"modelInfo,omitempty"`
	CreatedAt         time.Time      `json:"createdAt,omitempty"`
}

type Article struct {
	ID        string        `json:"_id"`
	Title     string        `json:"title"`
	Body      string        `json:"body"`
	Tags      []string      `json:"tags"`
	Status    ArticleStatus `json:"status"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// SystemConfig is the singleton triage configuration. Fetched once, replaced
// wholesale on update.
type SystemConfig struct {
	ID                  string  `json:"_id,omitempty"`
	AutoCloseEnabled    bool    `json:"autoCloseEnabled"`
	ConfidenceThreshold float64 `json:"confidenceThreshold"`
	SLAHours            int     `json:"slaHours"`
}

type AuditLog struct {
	ID        string         `json:"_id"`
	TicketID  string         `json:"ticketId"`
	TraceID   string         `json:"traceId"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
	Meta      map[string]any `json:"meta,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// TicketDetail is the expanded view of one ticket, as served by
// GET /tickets/{id} and assembled locally after Create.
type TicketDetail struct {
	Ticket     Ticket           `json:"ticket"`
	Suggestion *AgentSuggestion `json:"agentSuggestion,omitempty"`
	Audit      []AuditLog       `json:"audit,omitempty"`
}

package store

import (
	"context"
	"sync"

	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"github.com/smarthelp/deskclient/internal/api"
	"github.com/smarthelp/deskclient/internal/common"
	"github.com/smarthelp/deskclient/internal/credstore"
	"github.com/smarthelp/deskclient/internal/model"
)

// SessionSlice owns the authenticated user and bearer credential. The two
// are set and cleared together: credential present means authenticated.
type SessionSlice struct {
	mu    sync.Mutex
	lc    lifecycle
	api   *api.Client
	creds *credstore.Store

	user  *model.User
	token string
}

// RegisterInput carries the /auth/register payload. Required-field presence
// is enforced by the caller before invocation (see cmd/deskctl); the slice
// does not re-validate.
type RegisterInput struct {
	Name     string     `json:"name" validate:"required"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	Role     model.Role `json:"role,omitempty"`
}

func newSessionSlice(c *api.Client, creds *credstore.Store) *SessionSlice {
	s := &SessionSlice{api: c, creds: creds}
	s.rehydrate()
	return s
}

// rehydrate restores a persisted session so a restart does not force
// re-authentication. Read once, at construction only.
func (s *SessionSlice) rehydrate() {
	if s.creds == nil {
		return
	}
	saved, err := s.creds.Load()
	if err != nil {
		common.L().Warn("credential rehydration failed", zap.Error(err))
		return
	}
	if saved == nil {
		return
	}
	u := saved.User
	s.user = &u
	s.token = saved.Token
}

func (s *SessionSlice) Login(ctx context.Context, email, password string) (*model.User, error) {
	s.mu.Lock()
	stamp := s.lc.begin()
	s.mu.Unlock()

	var resp model.AuthResponse
	err := s.api.JSON(ctx, consts.MethodPost, pathLogin,
		map[string]string{"email": email, "password": password}, &resp)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lc.reject(stamp, common.Message(err))
		return nil, err
	}
	u := resp.User
	if s.lc.fulfill(stamp) {
		s.user = &u
		s.token = resp.Token
		s.persist(resp)
	}
	return &u, nil
}

func (s *SessionSlice) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	s.mu.Lock()
	stamp := s.lc.begin()
	s.mu.Unlock()

	var resp model.AuthResponse
	err := s.api.JSON(ctx, consts.MethodPost, pathRegister, in, &resp)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lc.reject(stamp, common.Message(err))
		return nil, err
	}
	u := resp.User
	if s.lc.fulfill(stamp) {
		s.user = &u
		s.token = resp.Token
		s.persist(resp)
	}
	return &u, nil
}

// Logout clears the in-memory session and the durable credential store,
// unconditionally and synchronously.
func (s *SessionSlice) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.token = ""
	s.lc.err = ""
	if s.creds != nil {
		if err := s.creds.Clear(); err != nil {
			common.L().Warn("credential clear failed", zap.Error(err))
		}
	}
}

func (s *SessionSlice) persist(resp model.AuthResponse) {
	if s.creds == nil {
		return
	}
	err := s.creds.Save(&credstore.Credentials{Token: resp.Token, User: resp.User})
	if err != nil {
		common.L().Warn("credential persist failed", zap.Error(err))
	}
}

// Token is the adapter's token source.
func (s *SessionSlice) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *SessionSlice) Authenticated() bool {
	return s.Token() != ""
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (s *SessionSlice) CurrentUser() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *SessionSlice) State() SliceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SliceState{Loading: s.lc.loading, Error: s.lc.err}
}

func (s *SessionSlice) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lc.err = ""
}

package store

import (
	"context"
	"sync"

	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/smarthelp/deskclient/internal/api"
	"github.com/smarthelp/deskclient/internal/common"
	"github.com/smarthelp/deskclient/internal/model"
)

// ConfigSlice owns the system configuration singleton. It is fetched once
// and replaced wholesale on update; there is no partial-field merge beyond
// what the server returns.
type ConfigSlice struct {
	mu  sync.Mutex
	lc  lifecycle
	api *api.Client

	cfg *model.SystemConfig
}

// UpdateConfigInput is a partial update; nil fields are omitted from the
// payload. The local state is still replaced with the server's full answer.
type UpdateConfigInput struct {
	AutoCloseEnabled    *bool    `json:"autoCloseEnabled,omitempty"`
	ConfidenceThreshold *float64 `json:"confidenceThreshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	SLAHours            *int     `json:"slaHours,omitempty" validate:"omitempty,gt=0"`
}

func newConfigSlice(c *api.Client) *ConfigSlice {
	return &ConfigSlice{api: c}
}

func (c *ConfigSlice) Fetch(ctx context.Context) (*model.SystemConfig, error) {
	c.mu.Lock()
	stamp := c.lc.begin()
	c.mu.Unlock()

	var cfg model.SystemConfig
	err := c.api.JSON(ctx, consts.MethodGet, pathConfig, nil, &cfg)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lc.reject(stamp, common.Message(err))
		return nil, err
	}
	if c.lc.fulfill(stamp) {
		c.cfg = &cfg
	}
	return &cfg, nil
}

func (c *ConfigSlice) Update(ctx context.Context, in UpdateConfigInput) (*model.SystemConfig, error) {
	c.mu.Lock()
	stamp := c.lc.begin()
	c.mu.Unlock()

	var cfg model.SystemConfig
	err := c.api.JSON(ctx, consts.MethodPut, pathConfig, in, &cfg)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lc.reject(stamp, common.Message(err))
		return nil, err
	}
	if c.lc.fulfill(stamp) {
		c.cfg = &cfg
	}
	return &cfg, nil
}

// Config returns a copy of the cached singleton, or nil before first fetch.
func (c *ConfigSlice) Config() *model.SystemConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg == nil {
		return nil
	}
	cfg := *c.cfg
	return &cfg
}

func (c *ConfigSlice) State() SliceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SliceState{Loading: c.lc.loading, Error: c.lc.err}
}

func (c *ConfigSlice) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lc.err = ""
}

package main

import (
	"os"
	"strings"
	"sync"

	"github.com/yungbote/heirloom-backend/internal/app"
	"github.com/yungbote/heirloom-backend/internal/services"
)

type openFunc func() (services.DuplicateService, func(), error)

type commandContext struct {
	jsonFlag  bool
	actorFlag string

	open    openFunc
	once    sync.Once
	svc     services.DuplicateService
	closeFn func()
	openErr error
}

func newCommandContext(open openFunc) *commandContext {
	return &commandContext{open: open}
}

// openApp wires the full application against the configured database.
func openApp() (services.DuplicateService, func(), error) {
	a, err := app.New()
	if err != nil {
		return nil, nil, err
	}
	return a.Services.Duplicates, a.Close, nil
}

func (c *commandContext) service() (services.DuplicateService, error) {
	c.once.Do(func() {
		c.svc, c.closeFn, c.openErr = c.open()
	})
	return c.svc, c.openErr
}

func (c *commandContext) close() {
	if c.closeFn != nil {
		c.closeFn()
		c.closeFn = nil
	}
}

// actor resolves the acting operator: --actor, then HEIRLOOM_ACTOR, then $USER.
func (c *commandContext) actor() string {
	if v := strings.TrimSpace(c.actorFlag); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("HEIRLOOM_ACTOR")); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv("USER"))
}

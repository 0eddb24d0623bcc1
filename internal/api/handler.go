package api

import (
	"context"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"bins-status-backend/internal/coordinator"
	"bins-status-backend/internal/council"
	"bins-status-backend/internal/store"
)

// Resolver resolves a postcode to candidate addresses. Implemented by
// *council.Client and by test doubles.
type Resolver interface {
	LookupAddresses(ctx context.Context, postcode string) ([]council.Address, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	resolver Resolver
	manager  *coordinator.Manager
	webpush  *webpush.Options

	// appCtx bounds the lifetime of coordinators started from setup
	// requests; they must outlive the request context.
	appCtx   context.Context
	location *time.Location
	now      func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(appCtx context.Context, s store.Store, resolver Resolver, manager *coordinator.Manager, webpushOptions *webpush.Options, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		store:    s,
		resolver: resolver,
		manager:  manager,
		webpush:  webpushOptions,
		appCtx:   appCtx,
		location: loc,
		now:      time.Now,
	}
}

func (h *Handler) today() time.Time {
	return h.now().In(h.location)
}

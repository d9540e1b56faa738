package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"checkin-backend/internal/checkin"
	"checkin-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc     *checkin.Service
	store   store.Store
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(svc *checkin.Service, s store.Store, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		svc:     svc,
		store:   s,
		webpush: webpushOptions,
	}
}

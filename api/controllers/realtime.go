package controllers

import (
	"net/http"

	"github.com/angelmondragon/bakery-backend/api/responses"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

// WebsocketServer upgrades a request into a live subscription.
type WebsocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// OrderFeed streams order events to the admin dashboard.
func OrderFeed(hub WebsocketServer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "order feed unavailable"))
			return
		}
		hub.ServeWS(w, r)
	}
}

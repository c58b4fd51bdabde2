package handlers

import (
	"context"
	"net/http"
	"time"

	"todoapi/database"
	"todoapi/logger"
	"todoapi/models"
	"todoapi/utils"
)

const healthTimeout = 2 * time.Second

func RootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.RootStatus{Message: "Todo API - Phase II", Status: "running"})
}

type healthResponse struct {
	OK bool `json:"ok"`
}

// HealthHandler reports 503 when either the database or Redis does not answer a ping.
func HealthHandler(w http.ResponseWriter, r *http.Request, db *database.DB, sessions *utils.SessionStore) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		logger.ErrorContext(ctx, "health: database ping failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{OK: false})
		return
	}
	if err := sessions.Ping(ctx); err != nil {
		logger.ErrorContext(ctx, "health: redis ping failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{OK: false})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{OK: true})
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"todoapi/database"
	"todoapi/logger"
	"todoapi/models"
	"todoapi/utils"
)

const mailTimeout = 10 * time.Second

func RegisterHandler(w http.ResponseWriter, r *http.Request, db *database.DB, mailer utils.Mailer) {
	var req models.UserCreate
	if !decodeAndValidate(w, r, &req) {
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		logger.ErrorContext(r.Context(), "hashing password", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := db.CreateUser(r.Context(), req.Username, req.Email, hash)
	if errors.Is(err, database.ErrConflict) {
		writeError(w, http.StatusConflict, "Username or email already registered")
		return
	}
	if err != nil {
		writeDBError(w, r, err, "User not found")
		return
	}
	logger.InfoContext(r.Context(), "user registered", "user_id", user.ID, "username", user.Username)

	// A failed welcome mail never fails the registration.
	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), mailTimeout)
	defer cancel()
	if err := mailer.SendWelcome(mailCtx, user.Email, user.Username); err != nil {
		logger.WarnContext(r.Context(), "welcome mail failed", "error", err, "user_id", user.ID)
	}

	writeJSON(w, http.StatusCreated, user.Public())
}

func LoginHandler(w http.ResponseWriter, r *http.Request, db *database.DB, sessions *utils.SessionStore) {
	var req models.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := db.GetUserByUsername(r.Context(), req.Username)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		writeDBError(w, r, err, "User not found")
		return
	}
	if !passwordMatches(user, err == nil, req.Password) {
		logger.WarnContext(r.Context(), "login failed", "username", req.Username)
		unauthorized(w, "Incorrect username or password")
		return
	}

	session, err := sessions.Create(r.Context(), user.ID, utils.GetUserAgent(r), utils.GetIP(r))
	if err != nil {
		logger.ErrorContext(r.Context(), "creating session", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.InfoContext(r.Context(), "login successful", "user_id", user.ID)
	writeJSON(w, http.StatusOK, models.Token{
		AccessToken: session.Token,
		TokenType:   "bearer",
		User:        user.Public(),
	})
}

// dummyHash is compared against when the username does not exist, so unknown
// and known usernames cost the same bcrypt work.
var dummyHash = sync.OnceValue(func() string {
	hash, err := utils.HashPassword("invalid-password-placeholder")
	if err != nil {
		panic(err)
	}
	return hash
})

func passwordMatches(user models.User, found bool, password string) bool {
	hash := user.PasswordHash
	if !found {
		hash = dummyHash()
	}
	ok := utils.CheckPasswordHash(password, hash)
	return found && ok
}

func LogoutHandler(w http.ResponseWriter, r *http.Request, sessions *utils.SessionStore) {
	err := sessions.Delete(r.Context(), sessionToken(r.Context()))
	if err != nil && !errors.Is(err, utils.ErrSessionNotFound) {
		logger.ErrorContext(r.Context(), "deleting session", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, models.Message{Message: "Logged out"})
}

// LogoutAllHandler revokes every session of the caller, including the current one.
func LogoutAllHandler(w http.ResponseWriter, r *http.Request, sessions *utils.SessionStore) {
	userID, _ := UserID(r.Context())

	count, err := sessions.CountForUser(r.Context(), userID)
	if err != nil {
		logger.ErrorContext(r.Context(), "counting sessions", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if err := sessions.DeleteAllForUser(r.Context(), userID); err != nil {
		logger.ErrorContext(r.Context(), "deleting sessions", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.InfoContext(r.Context(), "all sessions revoked", "user_id", userID, "sessions", count)
	writeJSON(w, http.StatusOK, models.Message{Message: fmt.Sprintf("Logged out of %d sessions", count)})
}

func MeHandler(w http.ResponseWriter, r *http.Request, db *database.DB) {
	userID, _ := UserID(r.Context())
	user, err := db.GetUserByID(r.Context(), userID)
	if err != nil {
		writeDBError(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// ABOUTME: HTTP handlers for login, registration, and result operations
// ABOUTME: Decodes requests, dispatches to the store, and maps failures to AppErrors

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/cergworks/cergdb/internal/auth"
	"github.com/cergworks/cergdb/internal/password"
	"github.com/cergworks/cergdb/internal/store"
)

// AdminEmail is the bootstrap administrator account created at startup when
// absent.
const AdminEmail = "admin"

// Server holds the HTTP handler dependencies.
type Server struct {
	store  store.Store
	tokens *auth.Tokens
	hasher *password.Hasher
	logger *slog.Logger
}

// NewServer creates a Server with the given dependencies.
func NewServer(st store.Store, tokens *auth.Tokens, hasher *password.Hasher, logger *slog.Logger) *Server {
	return &Server{
		store:  st,
		tokens: tokens,
		hasher: hasher,
		logger: logger.With("component", "api"),
	}
}

// CredentialsRequest is the JSON request body for POST /login and
// POST /register.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
}

// LoginResponse is the JSON response for a successful POST /login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Type        string `json:"type"`
}

// RenameRequest is the JSON request body for POST /rename.
type RenameRequest struct {
	CurrentID string `json:"current_id"`
	NewID     string `json:"new_id"`
}

// DeleteRequest is the JSON request body for POST /delete.
type DeleteRequest struct {
	ID string `json:"id"`
}

// RetrieveRequest is the JSON request body (or query string) for /retrieve.
// Filter is accepted for client compatibility but deliberately ignored:
// concatenating client text into SQL is how this API gets injected.
type RetrieveRequest struct {
	Limit   *int     `json:"limit,omitempty"`
	Offset  *int     `json:"offset,omitempty"`
	Fields  []string `json:"fields,omitempty"`
	Flatten bool     `json:"flatten,omitempty"`
	Filter  string   `json:"filter,omitempty"`
}

// handleInfo handles GET / requests with a listing of available routes.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"routes": []string{"/register", "/login", "/user_profile", "/submit", "/retrieve", "/rename", "/delete"},
	})
}

// handleLogin handles POST /login requests. It verifies the supplied
// credentials against the stored hash and issues a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds CredentialsRequest
	if err := decodeJSON(r.Body, &creds); err != nil {
		writeError(w, s.logger, errInvalidRequest("invalid JSON body"))
		return
	}

	if creds.Email == "" {
		writeError(w, s.logger, errMissingCredential())
		return
	}

	user, err := s.store.GetUser(r.Context(), creds.Email)
	if err != nil {
		writeError(w, s.logger, mapStoreError(err))
		return
	}

	matches, err := s.hasher.Verify(r.Context(), creds.Password, user.PasswordHash)
	if err != nil {
		writeError(w, s.logger, errInternal(fmt.Errorf("verifying password: %w", err)))
		return
	}
	if !matches {
		s.logger.Warn("wrong credentials", "email", creds.Email)
		writeError(w, s.logger, errWrongCredential())
		return
	}

	token, err := s.tokens.Issue(user.Email, user.IsAdmin)
	if err != nil {
		writeError(w, s.logger, errTokenCreation(err))
		return
	}

	s.logger.Info("user logged in", "email", user.Email)
	writeJSON(w, http.StatusOK, LoginResponse{AccessToken: token, Type: "Bearer"})
}

// handleRegister handles POST /register requests. Only admins may register
// new users; the admin check runs before any validation or store access so
// unauthorized callers learn nothing about existing accounts.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	claims := auth.MustFromContext(r.Context())
	if !claims.IsAdmin {
		writeError(w, s.logger, errAuthentication(
			fmt.Sprintf("User %s does not have admin privileges", claims.Username)))
		return
	}

	var newUser CredentialsRequest
	if err := decodeJSON(r.Body, &newUser); err != nil {
		writeError(w, s.logger, errInvalidRequest("invalid JSON body"))
		return
	}

	if newUser.Email == "" || newUser.Password == "" {
		writeError(w, s.logger, errMissingCredential())
		return
	}

	hash, err := s.hasher.Hash(r.Context(), newUser.Password)
	if err != nil {
		writeError(w, s.logger, errInternal(fmt.Errorf("hashing password: %w", err)))
		return
	}

	err = s.store.CreateUser(r.Context(), &store.User{
		Email:        newUser.Email,
		PasswordHash: hash,
		Name:         newUser.Name,
		IsAdmin:      newUser.IsAdmin,
	})
	if err != nil {
		writeError(w, s.logger, mapStoreError(err))
		return
	}

	s.logger.Info("registered user", "email", newUser.Email, "by", claims.Username)
	writeJSON(w, http.StatusOK, map[string]string{
		"success": "registered user: " + newUser.Email,
	})
}

// handleUserProfile handles GET /user_profile requests for the
// authenticated user.
func (s *Server) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.MustFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"username": claims.Username})
}

// handleSubmit handles POST /submit requests. A new id inserts the record;
// an existing id merges the supplied fields into the stored row.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	claims := auth.MustFromContext(r.Context())

	var result store.Result
	if err := decodeJSON(r.Body, &result); err != nil {
		writeError(w, s.logger, errInvalidRequest("invalid JSON body"))
		return
	}
	if result.ID == "" {
		writeError(w, s.logger, errInvalidRequest("id is required"))
		return
	}

	if err := s.store.SubmitResult(r.Context(), &result); err != nil {
		writeError(w, s.logger, mapStoreError(err))
		return
	}

	s.logger.Info("result submitted", "id", result.ID, "submitter", claims.Username)
	writeJSON(w, http.StatusOK, map[string]string{"submitter": claims.Username})
}

// handleRetrieve handles GET and POST /retrieve requests. Pagination and
// transform options come from query parameters on GET or the JSON body on
// POST.
func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	claims := auth.MustFromContext(r.Context())

	req, err := parseRetrieveRequest(r)
	if err != nil {
		writeError(w, s.logger, errInvalidRequest(err.Error()))
		return
	}

	limit := -1 // no limit
	if req.Limit != nil {
		limit = *req.Limit
	}
	offset := 0
	if req.Offset != nil {
		offset = *req.Offset
	}

	results, err := s.store.ListResults(r.Context(), limit, offset)
	if err != nil {
		writeError(w, s.logger, mapStoreError(err))
		return
	}

	body, err := transformResults(results, req.Fields, req.Flatten)
	if err != nil {
		writeError(w, s.logger, errInternal(fmt.Errorf("transforming results: %w", err)))
		return
	}

	s.logger.Info("results retrieved", "count", len(results), "user", claims.Username)
	writeJSON(w, http.StatusOK, body)
}

// handleRename handles POST /rename requests, re-keying a result record.
func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	claims := auth.MustFromContext(r.Context())

	var req RenameRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, s.logger, errInvalidRequest("invalid JSON body"))
		return
	}
	if req.CurrentID == "" || req.NewID == "" {
		writeError(w, s.logger, errInvalidRequest("current_id and new_id are required"))
		return
	}

	err := s.store.RenameResult(r.Context(), req.CurrentID, req.NewID)
	switch {
	case errors.Is(err, store.ErrResultNotFound):
		writeError(w, s.logger, errIDNotFound(req.CurrentID))
		return
	case errors.Is(err, store.ErrResultExists):
		writeError(w, s.logger, errIDExists(req.NewID))
		return
	case err != nil:
		writeError(w, s.logger, mapStoreError(err))
		return
	}

	s.logger.Info("result renamed", "old_id", req.CurrentID, "new_id", req.NewID, "user", claims.Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"old_id":    req.CurrentID,
		"new_id":    req.NewID,
		"submitter": claims.Username,
	})
}

// handleDelete handles POST /delete requests, removing a result and
// returning the deleted snapshot.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	claims := auth.MustFromContext(r.Context())

	var req DeleteRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, s.logger, errInvalidRequest("invalid JSON body"))
		return
	}
	if req.ID == "" {
		writeError(w, s.logger, errInvalidRequest("id is required"))
		return
	}

	deleted, err := s.store.DeleteResult(r.Context(), req.ID)
	if errors.Is(err, store.ErrResultNotFound) {
		writeError(w, s.logger, errIDNotFound(req.ID))
		return
	}
	if err != nil {
		writeError(w, s.logger, mapStoreError(err))
		return
	}

	s.logger.Info("result deleted", "id", req.ID, "user", claims.Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      req.ID,
		"deleted": deleted,
		"user":    claims.Username,
	})
}

// parseRetrieveRequest parses retrieve options from query parameters on GET
// or the JSON body on POST.
func parseRetrieveRequest(r *http.Request) (*RetrieveRequest, error) {
	if r.Method == http.MethodPost {
		var req RetrieveRequest
		if err := decodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.New("invalid JSON body")
		}
		return &req, nil
	}

	var req RetrieveRequest
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.New("limit must be an integer")
		}
		req.Limit = &limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.New("offset must be an integer")
		}
		req.Offset = &offset
	}
	if raw := q.Get("fields"); raw != "" {
		for _, field := range strings.Split(raw, ",") {
			if field = strings.TrimSpace(field); field != "" {
				req.Fields = append(req.Fields, field)
			}
		}
	}
	if raw := q.Get("flatten"); raw != "" {
		flatten, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.New("flatten must be a boolean")
		}
		req.Flatten = flatten
	}
	req.Filter = q.Get("filter")
	return &req, nil
}

// decodeJSON decodes a JSON request body into dst.
func decodeJSON(body io.Reader, dst any) error {
	return json.NewDecoder(body).Decode(dst)
}

// EnsureAdmin creates the bootstrap administrator account if it does not
// exist yet. An account that is already present is left untouched, so a
// changed bootstrap password never rotates a live credential.
func EnsureAdmin(ctx context.Context, st store.Store, hasher *password.Hasher, adminPassword string, logger *slog.Logger) error {
	_, err := st.GetUser(ctx, AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return fmt.Errorf("looking up admin user: %w", err)
	}

	if adminPassword == "" {
		return errors.New("admin user absent and auth.admin_password is not set")
	}

	hash, err := hasher.Hash(ctx, adminPassword)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}

	logger.Info("creating bootstrap admin user")
	err = st.CreateUser(ctx, &store.User{
		Email:        AdminEmail,
		PasswordHash: hash,
		Name:         "Administrator",
		IsAdmin:      true,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}
	return nil
}

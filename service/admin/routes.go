package admin

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/service/token"
)

type Store interface {
	AdminByUsername(ctx context.Context, username string) (*models.Admin, error)
}

type Handler struct {
	store     Store
	authority *token.Authority
	logger    *zap.Logger
}

func NewHandler(store Store, authority *token.Authority, logger *zap.Logger) *Handler {
	return &Handler{store: store, authority: authority, logger: logger}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/login", h.Login).Methods("POST")
}

// Login issues an admin token. Admin tokens carry the username as subject,
// unlike doctor and patient tokens which carry the email.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var loginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&loginRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if loginRequest.Username == "" || loginRequest.Password == "" {
		http.Error(w, "Missing credentials", http.StatusBadRequest)
		return
	}

	admin, err := h.store.AdminByUsername(r.Context(), loginRequest.Username)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(loginRequest.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	accessToken, err := h.authority.Issue(admin.Username, token.RoleAdmin)
	if err != nil {
		h.logger.Error("token issue failed", zap.Error(err))
		http.Error(w, "Error generating access token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Login successful",
		"token":   accessToken,
	})
}

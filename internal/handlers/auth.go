package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oumar-d/invoicedesk/internal/auth"
	"github.com/oumar-d/invoicedesk/internal/httpx"
	"github.com/oumar-d/invoicedesk/internal/models"
)

type AuthHandler struct{ DB *gorm.DB }

func NewAuthHandler(db *gorm.DB) *AuthHandler { return &AuthHandler{DB: db} }

func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/signup", h.signup)
	mux.HandleFunc("/login", h.login)
	mux.HandleFunc("/logout", h.logout)
	mux.Handle("/me", auth.Middleware(auth.RequireAuth(http.HandlerFunc(h.me))))
}

type signupReq struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	BusinessName string `json:"businessName"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	var req signupReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"email": "required", "password": "required"})
		return
	}
	var count int64
	if err := h.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err == nil && count > 0 {
		httpx.JSONError(w, http.StatusConflict, "email_taken", nil)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "hash_failed", nil)
		return
	}
	user := models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		Password:     string(hash),
		BusinessName: strings.TrimSpace(req.BusinessName),
		Address:      strings.TrimSpace(req.Address),
		Phone:        strings.TrimSpace(req.Phone),
	}
	if err := h.DB.Create(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "could_not_create_user", nil)
		return
	}
	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusCreated, user)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	var user models.User
	if err := h.DB.Where("email = ?", strings.TrimSpace(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "login_failed", nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	auth.ClearSession(w)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var user models.User
	if err := h.DB.First(&user, uid).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "user_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"miniapp_profile/internal/db"
	"miniapp_profile/internal/nickname"
	"miniapp_profile/internal/telegram"
	"miniapp_profile/internal/tgbot"
)

const maxPhotoBytes = 5 << 20

// ProfileStore is the slice of the persistence layer the handlers touch.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, principal telegram.Principal) (db.Profile, error)
	GetProfile(ctx context.Context, telegramID int64) (db.Profile, error)
	UpdateProfile(ctx context.Context, telegramID int64, upd db.ProfileUpdate) (db.Profile, error)
	SetProfilePhoto(ctx context.Context, telegramID int64, photoURL string) error
}

// PhotoUploader pushes a profile photo to external storage and returns its URL.
type PhotoUploader interface {
	UploadPhoto(data []byte) (string, error)
}

type Metrics interface {
	AuthSuccess()
	AuthFailure(reason string)
	NicknameReserved()
	NicknameConflict()
	NicknameExhausted()
}

type Server struct {
	validator *telegram.Validator
	allocator *nickname.Allocator
	store     ProfileStore
	media     PhotoUploader
	metrics   Metrics
	logger    *log.Logger
}

func NewServer(validator *telegram.Validator, allocator *nickname.Allocator, store ProfileStore,
	media PhotoUploader, metrics Metrics, logger *log.Logger) *Server {
	return &Server{
		validator: validator,
		allocator: allocator,
		store:     store,
		media:     media,
		metrics:   metrics,
		logger:    logger,
	}
}

type authResponse struct {
	User                db.Profile `json:"user"`
	NicknameSuggestions []string   `json:"nickname_suggestions,omitempty"`
}

// handleTelegramAuth is the login-or-register entry point. The init_data
// form field must carry the untouched wire string.
func (s *Server) handleTelegramAuth(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid form body")
		return
	}
	raw := r.PostFormValue("init_data")
	if raw == "" {
		raw = initDataFrom(r)
	}
	if raw == "" {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "init_data is required")
		return
	}

	principal, err := s.validator.Validate(raw)
	if err != nil {
		reason := authFailureReason(err)
		s.metrics.AuthFailure(reason)
		s.logger.Printf("auth rejected: reason=%s path=%s", reason, r.URL.Path)
		writeError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "init data rejected")
		return
	}
	s.metrics.AuthSuccess()

	profile, err := s.store.UpsertProfile(r.Context(), principal)
	if err != nil {
		s.logger.Printf("login upsert failed: user=%d err=%v", principal.ID, err)
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "could not load profile")
		return
	}

	resp := authResponse{User: profile}
	if profile.Nickname == "" {
		// Best-effort onboarding aid; losing it must not fail the login.
		suggestions, err := s.allocator.Suggest(r.Context())
		if err != nil {
			s.logger.Printf("login suggestions failed: user=%d err=%v", principal.ID, err)
		} else {
			resp.NicknameSuggestions = suggestions
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.allocator.Suggest(r.Context())
	if err != nil {
		s.logger.Printf("suggest failed: err=%v", err)
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "suggestion store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": suggestions})
}

type reserveRequest struct {
	Nickname string `json:"nickname"`
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Nickname == "" {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "nickname is required")
		return
	}

	ok, err := s.allocator.Claim(r.Context(), principal.ID, req.Nickname)
	if err != nil {
		s.logger.Printf("claim failed: user=%d err=%v", principal.ID, err)
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "nickname store unavailable")
		return
	}
	if !ok {
		s.metrics.NicknameConflict()
		writeError(w, r, http.StatusConflict, ErrCodeNicknameTaken, "nickname already taken")
		return
	}

	s.metrics.NicknameReserved()
	writeJSON(w, http.StatusOK, map[string]any{"nickname": req.Nickname, "reserved": true})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	name, err := s.allocator.GenerateAndReserve(r.Context())
	if err != nil {
		if errors.Is(err, nickname.ErrExhausted) {
			s.metrics.NicknameExhausted()
			writeError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "no nickname available, try again later")
			return
		}
		s.logger.Printf("generate failed: user=%d err=%v", principal.ID, err)
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "nickname store unavailable")
		return
	}

	ok, err := s.allocator.Claim(r.Context(), principal.ID, name)
	if err != nil {
		s.logger.Printf("assign generated nickname failed: user=%d err=%v", principal.ID, err)
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "nickname store unavailable")
		return
	}
	if !ok {
		// The reservation ledger holds the name, so only a lost profile row
		// ends up here.
		writeError(w, r, http.StatusConflict, ErrCodeNicknameTaken, "nickname already taken")
		return
	}

	s.metrics.NicknameReserved()
	writeJSON(w, http.StatusOK, map[string]string{"nickname": name})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	profile, err := s.store.GetProfile(r.Context(), principal.ID)
	if err != nil {
		if errors.Is(err, db.ErrProfileNotFound) {
			writeError(w, r, http.StatusNotFound, ErrCodeNotFound, "profile not found")
			return
		}
		s.logger.Printf("get profile failed: user=%d err=%v", principal.ID, err)
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "could not load profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]db.Profile{"user": profile})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	var upd db.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid profile update body")
		return
	}

	profile, err := s.store.UpdateProfile(r.Context(), principal.ID, upd)
	if err != nil {
		if errors.Is(err, db.ErrProfileNotFound) {
			writeError(w, r, http.StatusNotFound, ErrCodeNotFound, "profile not found")
			return
		}
		s.logger.Printf("update profile failed: user=%d err=%v", principal.ID, err)
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "could not update profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]db.Profile{"user": profile})
}

// handleUploadPhoto stores a profile photo via the Telegram Bot API. Upload
// failures surface to the caller; a photo is never dropped silently.
func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid multipart body")
		return
	}
	file, _, err := r.FormFile("photo")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "photo file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes+1))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "could not read photo")
		return
	}
	if len(data) > maxPhotoBytes {
		writeError(w, r, http.StatusRequestEntityTooLarge, ErrCodeInvalidRequest, "photo exceeds 5MB")
		return
	}

	url, err := s.media.UploadPhoto(data)
	if err != nil {
		if errors.Is(err, tgbot.ErrNotConfigured) {
			writeError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "photo uploads are disabled")
			return
		}
		s.logger.Printf("photo upload failed: user=%d err=%v", principal.ID, err)
		writeError(w, r, http.StatusBadGateway, ErrCodeUpstreamError, "photo upload failed")
		return
	}

	if err := s.store.SetProfilePhoto(r.Context(), principal.ID, url); err != nil {
		s.logger.Printf("persist photo url failed: user=%d err=%v", principal.ID, err)
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "could not save photo")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"photo_url": url})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

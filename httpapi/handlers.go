// Package httpapi exposes the engine over HTTP:
//
//	POST /auth/login     {email,password} -> 200 {accessToken,refreshToken,user}
//	POST /auth/refresh   Bearer renewal   -> 200 {accessToken,refreshToken}
//	POST /auth/logout    Bearer access    -> 200 {message}
//	GET  /auth/profile   Bearer access    -> 200 {id,email}
//	POST /user/register  {email,password} -> 201 {message}
//
// Invalid credentials at login and every renewal failure surface as the same
// undifferentiated 401, so callers cannot tell which accounts exist or why a
// rotation was refused.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	authloop "github.com/mkellner/authloop"
	"github.com/mkellner/authloop/middleware"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type pairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type loginResponse struct {
	pairResponse
	User userResponse `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Handler builds the route table for engine.
func Handler(engine *authloop.Engine) http.Handler {
	mux := http.NewServeMux()
	guard := middleware.Guard(engine)

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := engine.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, loginResponse{
			pairResponse: pairResponse{
				AccessToken:  result.AccessToken,
				RefreshToken: result.RenewalToken,
			},
			User: userResponse{ID: result.User.ID, Email: result.User.Email},
		})
	})

	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		renewal, ok := middleware.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		pair, err := engine.Refresh(r.Context(), renewal)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, pairResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RenewalToken,
		})
	})

	mux.Handle("POST /auth/logout", guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if err := engine.Logout(r.Context(), claims.Subject); err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
	})))

	mux.Handle("GET /auth/profile", guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		profile, err := engine.Profile(r.Context(), claims.Subject)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, userResponse{ID: profile.ID, Email: profile.Email})
	})))

	mux.HandleFunc("POST /user/register", func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := engine.Register(r.Context(), req.Email, req.Password); err != nil {
			switch {
			case errors.Is(err, authloop.ErrAccountExists):
				writeMessage(w, http.StatusBadRequest, "Email is already registered")
			case errors.Is(err, authloop.ErrEngineNotReady):
				writeMessage(w, http.StatusServiceUnavailable, "service unavailable")
			default:
				// Validation failures (empty email, weak password) carry a
				// caller-facing message.
				writeMessage(w, http.StatusBadRequest, err.Error())
			}
			return
		}

		writeJSON(w, http.StatusCreated, messageResponse{Message: "Registration successful"})
	})

	return mux
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authloop.ErrInvalidCredentials),
		errors.Is(err, authloop.ErrAccessDenied),
		errors.Is(err, authloop.ErrUserNotFound):
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, authloop.ErrAccountExists):
		writeMessage(w, http.StatusBadRequest, "Email is already registered")
	case errors.Is(err, authloop.ErrEngineNotReady):
		writeMessage(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

/*
Package account implements authentication, profile, and admin user management
against the Carvia API.

It is the only package that writes sessions: login, registration, refresh,
logout, and impersonation all funnel through the session store, which in turn
broadcasts the state changes every other component reacts to.
*/
package account

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/carvia/carvia-go/internal/api"
	"github.com/carvia/carvia-go/internal/platform/apperr"
	"github.com/carvia/carvia-go/internal/platform/sec"
	"github.com/carvia/carvia-go/internal/platform/validate"
	"github.com/carvia/carvia-go/internal/session"
	"github.com/carvia/carvia-go/pkg/pagination"
)

// Service exposes the account operations. All methods return
// (zero, *apperr.AppError-compatible error); nothing panics past this
// boundary.
type Service struct {
	api      *api.Client
	sessions *session.Store
	logger   *slog.Logger
}

// NewService constructs the account Service.
func NewService(client *api.Client, sessions *session.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: client, sessions: sessions, logger: logger}
}

// # Wire Shapes

// authResponse is the token bundle returned by login, register, refresh, and
// impersonation endpoints.
type authResponse struct {
	AccessToken           string        `json:"accessToken"`
	RefreshToken          string        `json:"refreshToken"`
	ExpiresAt             time.Time     `json:"expiresAt"`
	RefreshTokenExpiresAt time.Time     `json:"refreshTokenExpiresAt"`
	User                  *session.User `json:"user"`
}

// session converts the wire bundle into the domain entity. A missing expiry
// is left zero; the store derives it from the token's exp claim.
func (r authResponse) session() *session.Session {
	return &session.Session{
		AccessToken:           r.AccessToken,
		RefreshToken:          r.RefreshToken,
		ExpiresAt:             r.ExpiresAt,
		RefreshTokenExpiresAt: r.RefreshTokenExpiresAt,
		User:                  r.User,
	}
}

// RegisterRequest carries the sign-up form fields.
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// # Authentication

/*
Login authenticates with the API and persists the resulting session.

Description:
 1. Pre-flight validation of the credentials (never hits the network on
    obviously empty input).
 2. POST the credentials; the server answers with the full token bundle.
 3. Store the session wholesale — the store broadcasts auth-changed and
    user-updated for every cached consumer.

Returns:
  - *session.User: the signed-in profile
  - error: validation, connectivity, or server failure
*/
func (service *Service) Login(ctx context.Context, usernameOrEmail, password string) (*session.User, error) {
	v := &validate.Validator{}
	if err := v.
		Required("username", usernameOrEmail).
		Required("password", password).
		Err(); err != nil {
		return nil, err
	}

	var response authResponse
	payload := map[string]string{"usernameOrEmail": usernameOrEmail, "password": password}
	if err := service.api.Post(ctx, "/api/auth/login", payload, &response); err != nil {
		return nil, err
	}

	service.sessions.Store(response.session())
	service.logger.Info("account_login", slog.String("user_id", userID(response.User)))
	return response.User, nil
}

// Register creates an account and signs it in immediately — the endpoint
// returns the same token bundle as login, and it is stored the same way.
func (service *Service) Register(ctx context.Context, request RegisterRequest) (*session.User, error) {
	v := &validate.Validator{}
	if err := v.
		Required("username", request.Username).
		MinLen("username", request.Username, 3).
		MaxLen("username", request.Username, 32).
		Email("email", request.Email).
		MinLen("password", request.Password, 8).
		Err(); err != nil {
		return nil, err
	}

	var response authResponse
	if err := service.api.Post(ctx, "/api/auth/register", request, &response); err != nil {
		return nil, err
	}

	service.sessions.Store(response.session())
	service.logger.Info("account_registered", slog.String("user_id", userID(response.User)))
	return response.User, nil
}

/*
Refresh exchanges the stored refresh token for a fresh bundle.

Description: Tokens are replaced wholesale; there is no in-place mutation of
an existing session. With no stored session the call fails without a network
round-trip.
*/
func (service *Service) Refresh(ctx context.Context) error {
	current := service.sessions.Read()
	if current == nil || current.RefreshToken == "" {
		return apperr.Unauthorized()
	}

	var response authResponse
	payload := map[string]string{"refreshToken": current.RefreshToken}
	if err := service.api.Post(ctx, "/api/auth/refresh", payload, &response); err != nil {
		return err
	}

	// A refresh response may omit the profile; keep the stored one.
	if response.User == nil {
		response.User = current.User
	}

	service.sessions.Store(response.session())
	return nil
}

// Logout tells the server to revoke the refresh token, then clears local
// state. The local clear happens even when the revocation call fails: the
// user asked to sign out, and the client honors that unconditionally.
func (service *Service) Logout(ctx context.Context) {
	if service.sessions.IsValid() {
		if err := service.api.Post(ctx, "/api/auth/logout", nil, nil); err != nil {
			service.logger.Warn("account_logout_revoke_failed", slog.String("error", apperr.Message(err)))
		}
	}
	service.sessions.Clear()
}

// # Profile

// Profile fetches the signed-in user's profile from the API.
func (service *Service) Profile(ctx context.Context) (*session.User, error) {
	var user session.User
	if err := service.api.Get(ctx, "/api/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile saves profile edits and refreshes the stored copy so every
// user-updated subscriber sees the new fields.
func (service *Service) UpdateProfile(ctx context.Context, update ProfileUpdate) (*session.User, error) {
	if update.Email != "" {
		v := &validate.Validator{}
		if err := v.Email("email", update.Email).Err(); err != nil {
			return nil, err
		}
	}

	var user session.User
	if err := service.api.Put(ctx, "/api/users/me", update, &user); err != nil {
		return nil, err
	}

	if current := service.sessions.Read(); current != nil {
		current.User = &user
		service.sessions.Store(current)
	}

	return &user, nil
}

// # Admin

// ListUsers returns one page of the platform's users. Admin only.
func (service *Service) ListUsers(ctx context.Context, params pagination.Params) ([]session.User, pagination.Meta, error) {
	if err := service.requireAdmin(); err != nil {
		return nil, pagination.Meta{}, err
	}

	query := url.Values{}
	params.Apply(query)

	raw, err := service.api.GetRaw(ctx, "/api/admin/users", query)
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	page, err := api.DecodePage[session.User](raw)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return page.Items, page.Meta, nil
}

// DeleteUser removes an account. Admin only.
func (service *Service) DeleteUser(ctx context.Context, userID string) error {
	if err := service.requireAdmin(); err != nil {
		return err
	}
	return service.api.Delete(ctx, "/api/admin/users/"+userID, nil)
}

// # Impersonation

/*
StartImpersonation fetches tokens for the target user and switches the active
session to them, snapshotting the admin's own session first.

Description: The snapshot-then-store order is deliberate; an interruption in
between leaves a recoverable orphaned snapshot, never a lost admin session.
*/
func (service *Service) StartImpersonation(ctx context.Context, targetUserID string) (*session.User, error) {
	if err := service.requireAdmin(); err != nil {
		return nil, err
	}

	current := service.sessions.Read()
	if current == nil {
		return nil, apperr.Unauthorized()
	}

	var response authResponse
	if err := service.api.Post(ctx, "/api/admin/impersonate/"+targetUserID, nil, &response); err != nil {
		return nil, err
	}

	service.sessions.BeginImpersonation(current, response.session())
	service.logger.Info("impersonation_started",
		slog.String("admin_id", userID(current.User)),
		slog.String("target_id", userID(response.User)),
	)
	return response.User, nil
}

// StopImpersonation restores the admin's own session. Returns an error when
// no impersonation is active.
func (service *Service) StopImpersonation() error {
	if !service.sessions.EndImpersonation() {
		return apperr.Validation("No impersonation is active")
	}
	service.logger.Info("impersonation_stopped")
	return nil
}

// requireAdmin gates the admin endpoints on the stored role. The server
// enforces this independently; the local check just fails earlier and with a
// friendlier message.
func (service *Service) requireAdmin() error {
	user := service.sessions.CurrentUser()
	if user == nil {
		return apperr.Unauthorized()
	}
	if !user.Role.AtLeast(sec.RoleAdmin) {
		return apperr.Validation(fmt.Sprintf("Requires the %s role", sec.RoleAdmin))
	}
	return nil
}

// userID tolerates the occasional endpoint that omits the profile.
func userID(user *session.User) string {
	if user == nil {
		return ""
	}
	return user.ID
}

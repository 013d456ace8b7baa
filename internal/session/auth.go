package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wavespace/wavespace/internal/ui"
	"github.com/wavespace/wavespace/pkg/client"
)

// Login signs in with a username or email and loads the profile.
func (s *Service) Login(ctx context.Context, identifier, password string) error {
	auth, err := s.authClient()
	if err != nil {
		return fmt.Errorf("session.Login: %w", err)
	}
	if _, err := auth.SignIn(ctx, identifier, password); err != nil {
		s.log.Info("sign-in failed", zap.String("identifier", identifier), zap.Error(err))
		msg := "Could not sign in. Please try again."
		if errors.Is(err, client.ErrInvalidCredentials) {
			msg = "Wrong username, email or password."
		}
		s.view.Toast(ui.Toast{Kind: ui.ToastError, Title: "Login failed", Message: msg})
		return fmt.Errorf("session.Login: %w", err)
	}

	user, err := auth.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("session.Login: load profile: %w", err)
	}
	if user == nil {
		s.view.Toast(ui.Toast{Kind: ui.ToastError, Title: "Login failed", Message: "No member profile is linked to this account."})
		return fmt.Errorf("session.Login: no profile for %s", identifier)
	}

	s.closeChannels()
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	s.openChannels(ctx, user.ID)
	s.render()
	s.view.Toast(ui.Toast{Kind: ui.ToastSuccess, Title: "Welcome", Message: user.DisplayName()})
	s.view.Navigate(ui.PageHome)
	return nil
}

// Logout asks for confirmation, signs out, clears the user and returns to
// the home page. The view is re-rendered whatever the outcome.
func (s *Service) Logout(ctx context.Context) error {
	auth, err := s.authClient()
	if err != nil {
		return fmt.Errorf("session.Logout: %w", err)
	}
	if !s.view.Confirm(ctx, "Log out of WAVE space?") {
		return nil
	}
	defer s.render()

	if err := auth.SignOut(ctx); err != nil {
		s.log.Warn("sign-out failed", zap.Error(err))
		s.view.Toast(ui.Toast{Kind: ui.ToastError, Title: "Logout failed", Message: err.Error()})
		return fmt.Errorf("session.Logout: %w", err)
	}

	s.closeChannels()
	s.mu.Lock()
	s.user = nil
	s.flash = false
	if s.flashT != nil {
		s.flashT.Stop()
	}
	s.mu.Unlock()

	s.view.Toast(ui.Toast{Kind: ui.ToastSuccess, Message: "You have been logged out."})
	s.view.Navigate(ui.PageHome)
	return nil
}

// RefreshUserInfo reloads the profile from the backend.
func (s *Service) RefreshUserInfo(ctx context.Context) error {
	auth, err := s.authClient()
	if err != nil {
		return fmt.Errorf("session.RefreshUserInfo: %w", err)
	}
	user, err := auth.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("session.RefreshUserInfo: %w", err)
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	s.render()
	return nil
}

// ResetPassword sends a reset link to email.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	auth, err := s.authClient()
	if err != nil {
		return fmt.Errorf("session.ResetPassword: %w", err)
	}
	if err := auth.ResetPassword(ctx, email); err != nil {
		s.view.Toast(ui.Toast{Kind: ui.ToastError, Title: "Password reset failed", Message: err.Error()})
		return fmt.Errorf("session.ResetPassword: %w", err)
	}
	s.view.Toast(ui.Toast{Kind: ui.ToastSuccess, Message: "Check your inbox for the reset link."})
	return nil
}

// RequireAuth gates an action on being signed in. Guests get an alert and
// are sent to the login page.
func (s *Service) RequireAuth(action string) bool {
	if s.IsLoggedIn() {
		return true
	}
	msg := "Please log in first."
	if action != "" {
		msg = "Please log in to " + action + "."
	}
	s.view.Alert(msg)
	s.view.Navigate(ui.PageLogin)
	return false
}

// RequireAdmin gates an action on the admin role.
func (s *Service) RequireAdmin(action string) bool {
	if !s.RequireAuth(action) {
		return false
	}
	if s.IsAdmin() {
		return true
	}
	s.view.Alert("Administrator permission is required.")
	return false
}

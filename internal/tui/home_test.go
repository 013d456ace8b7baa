package tui

import (
	"strings"
	"testing"

	"github.com/wavespace/wavespace/internal/session"
	"github.com/wavespace/wavespace/pkg/domain"
)

func TestHomeGuest(t *testing.T) {
	view := newHomeModel().View(session.Snapshot{State: session.Ready, Level: 1}, 0, true)
	for _, want := range []string{"Guest", "Welcome to WAVE space."} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestHomeConnecting(t *testing.T) {
	view := newHomeModel().View(session.Snapshot{}, 0, false)
	if !strings.Contains(view, "connecting") {
		t.Errorf("view = %q, want connecting notice", view)
	}
}

func TestHomeLoggedIn(t *testing.T) {
	tests := []struct {
		unread int
		want   string
	}{
		{0, "all caught up"},
		{1, "1 unread notification"},
		{3, "3 unread notifications"},
	}
	for _, tc := range tests {
		view := newHomeModel().View(loggedInSnapshot(), tc.unread, true)
		for _, want := range []string{"Surfer", "Lv.2", "1.5K P", "500 P to Lv.3", tc.want} {
			if !strings.Contains(view, want) {
				t.Errorf("unread=%d: view missing %q:\n%s", tc.unread, want, view)
			}
		}
	}
}

func TestUserCardMaxLevel(t *testing.T) {
	snap := loggedInSnapshot()
	snap.Level = domain.MaxLevel
	if card := userCard(snap); !strings.Contains(card, "max level") {
		t.Errorf("card missing max level:\n%s", card)
	}
}

func TestUserCardAdmin(t *testing.T) {
	snap := loggedInSnapshot()
	snap.User.Role = domain.RoleAdmin
	if card := userCard(snap); !strings.Contains(card, "admin") {
		t.Errorf("card missing admin marker:\n%s", card)
	}
}

func TestHomeSidebarCollapsed(t *testing.T) {
	m := newHomeModel()
	m.sidebarCollapsed = true
	view := m.View(session.Snapshot{State: session.Ready}, 0, true)
	if strings.Contains(view, "Guest") {
		t.Errorf("collapsed view still shows the user card:\n%s", view)
	}
}

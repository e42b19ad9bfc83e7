package onboarding

import (
	"context"
	"errors"
	"math/rand"
	"testing"
)

type mockAccounts struct {
	updated map[string]string
	err     error
}

func (m *mockAccounts) UpdateProfile(ctx context.Context, userID, username, displayName string) error {
	if m.err != nil {
		return m.err
	}
	if m.updated == nil {
		m.updated = make(map[string]string)
	}
	m.updated[userID] = displayName
	return nil
}

type mockBonus struct {
	granted map[string]int64
	already bool
	err     error
}

func (m *mockBonus) GrantWelcomeBonusOnce(ctx context.Context, userID string, amount int64, metadata map[string]interface{}) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.already {
		return false, nil
	}
	if m.granted == nil {
		m.granted = make(map[string]int64)
	}
	m.granted[userID] = amount
	return true, nil
}

func TestOnboardNewUserGrantsChipsAndProfile(t *testing.T) {
	accounts := &mockAccounts{}
	bonus := &mockBonus{}
	svc := NewService(accounts, bonus, rand.New(rand.NewSource(1)))

	result, err := svc.OnboardNewUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}
	if !result.WelcomeChipsGranted {
		t.Fatalf("expected welcome chips granted")
	}
	if bonus.granted["user-1"] != defaultWelcomeChips {
		t.Fatalf("granted = %d, want %d", bonus.granted["user-1"], defaultWelcomeChips)
	}
	if accounts.updated["user-1"] == "" {
		t.Fatalf("expected a generated display name")
	}
}

func TestOnboardNewUserProfileFailureIsNonFatal(t *testing.T) {
	accounts := &mockAccounts{err: errors.New("profile backend down")}
	bonus := &mockBonus{}
	svc := NewService(accounts, bonus, rand.New(rand.NewSource(1)))

	result, err := svc.OnboardNewUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}
	if result.ProfileUpdateErr == nil {
		t.Fatalf("expected recorded profile error")
	}
	if !result.WelcomeChipsGranted {
		t.Fatalf("chip grant must proceed despite profile failure")
	}
}

func TestOnboardNewUserIdempotentGrant(t *testing.T) {
	svc := NewService(&mockAccounts{}, &mockBonus{already: true}, rand.New(rand.NewSource(1)))

	result, err := svc.OnboardNewUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}
	if result.WelcomeChipsGranted {
		t.Fatalf("repeat onboarding must not re-grant")
	}
}

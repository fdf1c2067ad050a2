package services

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/arenaleague/arena/models"
)

func TestRegisterUser(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewAuthService(userRepo)

	user, err := svc.Register(context.Background(), RegisterInput{
		IGN: "Shadowfen", Email: "  Shadow@Example.COM  ", Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "shadow@example.com" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}
	if user.Role != models.RolePlayer {
		t.Fatalf("expected default PLAYER role, got %s", user.Role)
	}
	if user.PasswordHash != "" {
		t.Fatal("password hash must not leave the service")
	}

	stored, _ := userRepo.GetByID(context.Background(), user.ID)
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct-horse")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestRegisterUserValidation(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())

	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{"missing ign", RegisterInput{Email: "a@b.com", Password: "longenough"}, ErrValidationFailed},
		{"bad email", RegisterInput{IGN: "X", Email: "not-an-email", Password: "longenough"}, ErrValidationFailed},
		{"short password", RegisterInput{IGN: "X", Email: "a@b.com", Password: "short"}, ErrPasswordTooShort},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tc.input); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestRegisterUserConflicts(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())
	if _, err := svc.Register(context.Background(), RegisterInput{
		IGN: "Shadowfen", Email: "shadow@example.com", Password: "longenough",
	}); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(context.Background(), RegisterInput{
		IGN: "Other", Email: "shadow@example.com", Password: "longenough",
	})
	if !errors.Is(err, ErrAuthEmailTaken) {
		t.Fatalf("expected ErrAuthEmailTaken, got %v", err)
	}

	_, err = svc.Register(context.Background(), RegisterInput{
		IGN: "Shadowfen", Email: "other@example.com", Password: "longenough",
	})
	if !errors.Is(err, ErrAuthIGNTaken) {
		t.Fatalf("expected ErrAuthIGNTaken, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewAuthService(userRepo)
	if _, err := svc.Register(context.Background(), RegisterInput{
		IGN: "Shadowfen", Email: "shadow@example.com", Password: "correct-horse",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := svc.Login(context.Background(), LoginInput{
		Email: "Shadow@Example.com", Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.IGN != "Shadowfen" {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.PasswordHash != "" {
		t.Fatal("password hash must not leave the service")
	}

	if _, err := svc.Login(context.Background(), LoginInput{
		Email: "shadow@example.com", Password: "wrong",
	}); !errors.Is(err, ErrAuthInvalidCredentials) {
		t.Fatalf("expected ErrAuthInvalidCredentials for bad password, got %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginInput{
		Email: "nobody@example.com", Password: "correct-horse",
	}); !errors.Is(err, ErrAuthInvalidCredentials) {
		t.Fatalf("expected ErrAuthInvalidCredentials for unknown email, got %v", err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())

	if _, err := svc.GetUser(context.Background(), 42); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

package auth_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/tavolo-pos/api/internal/auth"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	waiterID := uuid.New()
	name := "Sam"
	role := "WAITER"

	token, err := auth.GenerateToken(secret, waiterID, name, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.WaiterID != waiterID {
		t.Errorf("waiter ID: got %v, want %v", claims.WaiterID, waiterID)
	}
	if claims.Name != name {
		t.Errorf("name: got %v, want %v", claims.Name, name)
	}
	if claims.Role != role {
		t.Errorf("role: got %v, want %v", claims.Role, role)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", uuid.New(), "Sam", "WAITER")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret-b", token)
	if err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	_, err := auth.ValidateToken("secret", "not-a-jwt")
	if err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}

package server

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Minute)

	token, err := ti.Issue(7, "arena", "alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.PlayerID != 7 || claims.RoomID != "arena" || claims.Name != "alice" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ID == "" {
		t.Error("missing jti")
	}

	other, _ := ti.Issue(7, "arena", "alice")
	otherClaims, _ := ti.Verify(other)
	if otherClaims.ID == claims.ID {
		t.Error("two tokens share the same jti")
	}
}

func TestTokenRejected(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Minute)
	token, _ := ti.Issue(1, DefaultRoomID, "bob")

	tests := []struct {
		name   string
		issuer *TokenIssuer
		token  string
	}{
		{"wrong secret", NewTokenIssuer("other", time.Minute), token},
		{"garbage", ti, "not-a-token"},
		{"empty", ti, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.issuer.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestTokenExpires(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Minute)
	token, _ := ti.Issue(1, DefaultRoomID, "bob")

	ti.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := ti.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token accepted: %v", err)
	}
}

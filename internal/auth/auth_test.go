package auth

import (
	"errors"
	"testing"
	"time"

	"institute/portal/internal/model"
)

const userID = "22222222-2222-2222-2222-222222222222"

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := NewAccessToken("secret", "issuer", time.Minute, Claims{
		UserID:   userID,
		UserType: "teacher",
	})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	claims, err := ParseToken("secret", "issuer", token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.UserID != userID || claims.UserType != "teacher" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := ParseToken("other-secret", "issuer", token); err == nil {
		t.Fatalf("expected signature mismatch")
	}
	if _, err := ParseToken("secret", "other-issuer", token); err == nil {
		t.Fatalf("expected issuer mismatch")
	}
}

func TestExpiredToken(t *testing.T) {
	token, err := NewAccessToken("secret", "issuer", -time.Minute, Claims{UserID: userID, UserType: "admin"})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret", "issuer", token); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestActorFromClaims(t *testing.T) {
	cases := map[string]model.Role{
		"admin":   model.RoleAdmin,
		"teacher": model.RoleTeacher,
		"student": model.RoleStudent,
	}
	for userType, role := range cases {
		actor, err := ActorFromClaims(&Claims{UserID: userID, UserType: userType})
		if err != nil {
			t.Fatalf("user_type %s: %v", userType, err)
		}
		if actor.Role() != role || actor.UserID() != userID {
			t.Fatalf("user_type %s: got role %s id %s", userType, actor.Role(), actor.UserID())
		}
	}

	if _, err := ActorFromClaims(&Claims{UserID: userID, UserType: "parent"}); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if _, err := ActorFromClaims(&Claims{UserID: "not-a-uuid", UserType: "admin"}); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}
}

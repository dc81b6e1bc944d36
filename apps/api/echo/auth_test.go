package echoapi

import (
	"testing"
	"time"

	"github.com/trezcool/darasa/core/user"
)

func TestGetUserClaims(t *testing.T) {
	usr := user.User{
		ID:       "usr_1",
		Username: "hero01",
		Email:    "hero@test.cd",
		Roles:    []string{user.RoleTeacher},
	}

	claims := GetUserClaims(usr)
	if claims.Audience != "Darasa" {
		t.Errorf("Audience = %s; want Darasa", claims.Audience)
	}
	if claims.Subject != usr.ID || claims.Username != usr.Username || claims.Email != usr.Email {
		t.Errorf("identity claims = %s/%s/%s; want %s/%s/%s",
			claims.Subject, claims.Username, claims.Email, usr.ID, usr.Username, usr.Email)
	}
	if claims.IsStudent || !claims.IsTeacher || claims.IsAdmin {
		t.Errorf("role flags = %v/%v/%v; want teacher only", claims.IsStudent, claims.IsTeacher, claims.IsAdmin)
	}
	if claims.OrigIssuedAt != claims.IssuedAt {
		t.Errorf("OrigIssuedAt = %d; want IssuedAt %d", claims.OrigIssuedAt, claims.IssuedAt)
	}

	// a refresh keeps the original issue time
	oriat := time.Now().Add(-time.Hour).Unix()
	refreshed := GetUserClaims(usr, oriat)
	if refreshed.OrigIssuedAt != oriat {
		t.Errorf("OrigIssuedAt = %d; want %d", refreshed.OrigIssuedAt, oriat)
	}
}

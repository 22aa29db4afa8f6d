package auth_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
)

func TestIssueAndParse(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour)

	token, err := iss.Issue("inst-7", auth.RoleInstructor)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	actor, err := iss.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if actor.ID != "inst-7" || actor.Role != auth.RoleInstructor {
		t.Errorf("actor = %+v", actor)
	}
	if !actor.CanAuthor() {
		t.Error("instructor should be able to author")
	}
}

func TestIssue_Rejects(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour)

	if _, err := iss.Issue("", auth.RoleAdmin); err == nil {
		t.Error("Issue() should reject empty user id")
	}
	if _, err := iss.Issue("u1", "principal"); err == nil {
		t.Error("Issue() should reject unknown role")
	}
}

func TestParse_Failures(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	iss := auth.NewIssuer("secret", time.Hour).WithClock(func() time.Time { return now })
	valid, _ := iss.Issue("u1", auth.RoleStudent)

	otherKey, _ := auth.NewIssuer("other", time.Hour).WithClock(func() time.Time { return now }).Issue("u1", auth.RoleAdmin)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1", "role": "admin", "iss": "eduflex", "exp": now.Add(time.Hour).Unix()})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	badRole := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "role": "janitor", "iss": "eduflex", "exp": now.Add(time.Hour).Unix()})
	badRoleToken, _ := badRole.SignedString([]byte("secret"))

	tests := []struct {
		name  string
		token string
		at    time.Time
	}{
		{"garbage", "not-a-token", now},
		{"wrong key", otherKey, now},
		{"alg none", unsigned, now},
		{"unknown role", badRoleToken, now},
		{"expired", valid, now.Add(2 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := tt.at
			p := auth.NewIssuer("secret", time.Hour).WithClock(func() time.Time { return at })
			_, err := p.Parse(tt.token)
			if !errors.Is(err, auth.ErrUnauthenticated) {
				t.Errorf("Parse() error = %v, want ErrUnauthenticated", err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour)
	token, _ := iss.Issue("admin-1", auth.RoleAdmin)

	tests := []struct {
		name    string
		header  string
		target  string
		wantErr bool
	}{
		{"bearer header", "Bearer " + token, "/api/courses", false},
		{"lowercase scheme", "bearer " + token, "/api/courses", false},
		{"query param", "", "/api/uploads/x/ws?access_token=" + token, false},
		{"missing", "", "/api/courses", true},
		{"basic auth", "Basic dXNlcjpwYXNz", "/api/courses", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			actor, err := iss.Authenticate(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !actor.IsAdmin() {
				t.Errorf("actor = %+v, want admin", actor)
			}
		})
	}
}

func TestActorContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := auth.ActorFrom(ctx); ok {
		t.Error("ActorFrom() on empty context should be false")
	}

	ctx = auth.WithActor(ctx, auth.Actor{ID: "s1", Role: auth.RoleStudent})
	a, ok := auth.ActorFrom(ctx)
	if !ok || a.ID != "s1" {
		t.Errorf("ActorFrom() = %+v, %v", a, ok)
	}
	if a.CanAuthor() {
		t.Error("students cannot author")
	}
}

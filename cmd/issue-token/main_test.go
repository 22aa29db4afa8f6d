package main

import (
	"testing"
	"time"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/platform/config"
)

func TestIssue(t *testing.T) {
	cfg := &config.Config{Auth: config.AuthConfig{JWTSecret: "dev-secret", AccessTokenTTL: 60}}

	tests := []struct {
		name    string
		user    string
		role    auth.Role
		wantErr bool
	}{
		{"instructor", "inst-1", auth.RoleInstructor, false},
		{"student", "stud-1", auth.RoleStudent, false},
		{"missing user", "", auth.RoleAdmin, true},
		{"unknown role", "u-1", auth.Role("owner"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := issue(cfg, tt.user, tt.role, 0)
			if (err != nil) != tt.wantErr {
				t.Fatalf("issue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			actor, err := auth.NewIssuer("dev-secret", time.Hour).Parse(token)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if actor.ID != tt.user || actor.Role != tt.role {
				t.Errorf("actor = %+v", actor)
			}
		})
	}
}

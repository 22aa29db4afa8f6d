// Command issue-token mints a bearer token for local development, signed
// with EDUFLEX_AUTH_JWT_SECRET.
//
//	go run ./cmd/issue-token -user inst-1 -role instructor
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/platform/config"
)

func main() {
	user := flag.String("user", "", "user id (token subject)")
	role := flag.String("role", string(auth.RoleInstructor), "instructor, admin or student")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to EDUFLEX_AUTH_ACCESS_TOKEN_TTL")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	token, err := issue(cfg, *user, auth.Role(*role), *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue-token:", err)
		flag.Usage()
		os.Exit(2)
	}
	fmt.Println(token)
}

func issue(cfg *config.Config, user string, role auth.Role, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Duration(cfg.Auth.AccessTokenTTL) * time.Minute
	}
	return auth.NewIssuer(cfg.Auth.JWTSecret, ttl).Issue(user, role)
}

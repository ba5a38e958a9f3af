package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"shortlink.local/internal/platform/auth"
	"shortlink.local/internal/platform/config"
)

// Mints an admin JWT for the guarded listing routes, using the same JWT_* settings as the
// server (.env is honoured).
func main() {
	if len(os.Args) != 2 {
		log.Fatal("usage: go run ./cmd/tools/admintoken <subject>")
	}

	cfg := config.Load()
	ts, err := auth.NewHS256Service(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		log.Fatal(err)
	}

	grant, err := auth.IssueAdmin(ts, os.Args[1])
	if err != nil {
		log.Fatal(err)
	}

	fmt.Fprintf(os.Stderr, "subject=%s role=%s jti=%s expires=%s\n",
		grant.Identity.Subject, grant.Identity.Role, grant.TokenID, grant.Identity.ExpiresAt.Format(time.RFC3339))
	fmt.Println(grant.Token)
}

// Command issue_token prints a bearer token for local testing. Identity is
// owned by an external service in production.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/sudo-init-do/carrypal/internal/auth"
	"github.com/sudo-init-do/carrypal/internal/config"
	"github.com/sudo-init-do/carrypal/internal/user"
)

func main() {
	userID := flag.String("user", "", "User id to embed")
	role := flag.String("role", string(user.RoleMember), "Role claim: member or arbiter")
	ttl := flag.Duration("ttl", 0, "Token lifetime (default 72h)")
	flag.Parse()

	if *userID == "" {
		log.Fatalf("usage: go run ./cmd/adminutil/issue_token -user <id> [-role arbiter] [-ttl 24h]")
	}
	if *role != string(user.RoleMember) && *role != string(user.RoleArbiter) {
		log.Fatalf("unknown role %q", *role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[config] %v", err)
	}
	token, err := auth.NewTokens(cfg.JWTSecret, *ttl).Issue(*userID, *role)
	if err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Println(token)
}

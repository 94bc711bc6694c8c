package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/sudo-init-do/carrypal/internal/config"
	"github.com/sudo-init-do/carrypal/internal/db"
	"github.com/sudo-init-do/carrypal/internal/storage/postgres"
	"github.com/sudo-init-do/carrypal/internal/user"
)

func main() {
	email := flag.String("email", "", "Email of the user to promote")
	id := flag.String("id", "", "Id of the user to promote")
	demote := flag.Bool("demote", false, "Revoke the arbiter role instead")
	flag.Parse()

	if (*email == "") == (*id == "") {
		log.Fatalf("usage: go run ./cmd/adminutil/promote_arbiter (-email user@example.com | -id <user id>) [-demote]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[config] %v", err)
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DB.DSN())
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("%v", err)
	}

	store := postgres.New(pool)
	userID := *id
	if *email != "" {
		if userID, err = store.UserIDByEmail(ctx, *email); err != nil {
			log.Fatalf("no user found with email %s: %v", *email, err)
		}
	}

	role := user.RoleArbiter
	if *demote {
		role = user.RoleMember
	}
	if err := user.NewDirectory(store).Promote(ctx, userID, role); err != nil {
		log.Fatalf("failed to set role: %v", err)
	}
	fmt.Printf("User %s is now %s.\n", userID, role)
}

// Command set-admin creates a company and makes an existing Firebase user
// its owner.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"cardlink/backend/internal/config"
	"cardlink/backend/internal/domain/admin"
	"cardlink/backend/internal/firebase"
	"cardlink/backend/internal/logging"

	"firebase.google.com/go/v4/auth"
)

func main() {
	email := flag.String("email", "", "email of an existing firebase user")
	uid := flag.String("uid", "", "target firebase uid (instead of -email)")
	company := flag.String("company", "", "company name")
	flag.Parse()
	if (*uid == "" && *email == "") || *company == "" {
		log.Fatal("usage: set-admin -email=owner@example.com -company=\"Acme Inc\"")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx := context.Background()
	clients, err := firebase.NewClients(ctx, cfg)
	if err != nil {
		log.Fatalf("firebase: %v", err)
	}
	defer clients.Close()

	var user *auth.UserRecord
	if *uid != "" {
		user, err = clients.Auth.GetUser(ctx, *uid)
	} else {
		user, err = clients.Auth.GetUserByEmail(ctx, *email)
	}
	if err != nil {
		log.Fatalf("lookup user: %v", err)
	}

	svc := admin.NewService(admin.NewRepo(clients.Firestore), clients.Auth, logger)
	a, c, err := svc.Bootstrap(ctx, user.UID, user.Email, *company)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	fmt.Printf("ok: %s (%s) owns company %q (%s)\n", a.Email, a.UID, c.Name, c.ID)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"

	"resitrack/backend/internal/authctx"
)

func main() {
	uid := flag.String("uid", "", "target firebase uid")
	role := flag.String("role", authctx.RoleAdmin, "role claim: admin or resident")
	flag.Parse()
	if *uid == "" {
		log.Fatal("uid is required: -uid=xxxxx")
	}
	if *role != authctx.RoleAdmin && *role != authctx.RoleResident {
		log.Fatalf("role must be %q or %q", authctx.RoleAdmin, authctx.RoleResident)
	}

	ctx := context.Background()
	app, err := firebase.NewApp(ctx, nil)
	if err != nil {
		log.Fatalf("firebase.NewApp: %v", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		log.Fatalf("app.Auth: %v", err)
	}

	claims := map[string]interface{}{
		"role": *role,
	}
	if err := authClient.SetCustomUserClaims(ctx, *uid, claims); err != nil {
		log.Fatalf("SetCustomUserClaims: %v", err)
	}

	fmt.Printf("ok: role=%s set for %s\n", *role, *uid)
}

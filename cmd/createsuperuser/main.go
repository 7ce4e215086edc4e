package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"kinoteka.org/internal/auth"
	"kinoteka.org/internal/store/pg"
)

// createsuperuser bootstraps the first superuser so the role endpoints are
// reachable on a fresh database. Safe to run twice.
func main() {
	log.SetFlags(0)
	_ = godotenv.Load()

	var (
		dsn      = flag.String("dsn", os.Getenv("KINOTEKA_PG_DSN"), "PostgreSQL DSN")
		email    = flag.String("email", "", "superuser email")
		password = flag.String("password", "", "superuser password")
		fullName = flag.String("full-name", "Superuser", "superuser full name")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or KINOTEKA_PG_DSN")
	}
	if *email == "" || *password == "" {
		log.Fatal("usage: createsuperuser -email <email> -password <password>")
	}
	if len(*password) < 8 {
		log.Fatal("password must be at least 8 characters")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := pg.Open(*dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	users := store.Users()
	roles := store.Roles()

	role, err := ensureRole(ctx, roles, auth.Superuser)
	if err != nil {
		log.Fatalf("ensure role: %v", err)
	}

	user, err := users.FindByEmail(ctx, *email)
	if errors.Is(err, auth.ErrNotFound) {
		hash, err := auth.HashPassword(*password)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		user = &auth.User{Email: *email, FullName: *fullName, PasswordHash: hash}
		if err := users.Create(ctx, user); err != nil {
			log.Fatalf("create user: %v", err)
		}
	} else if err != nil {
		log.Fatalf("find user: %v", err)
	}

	if err := roles.Grant(ctx, role.ID, user.ID); err != nil && !errors.Is(err, auth.ErrConflict) {
		log.Fatalf("grant role: %v", err)
	}

	log.Printf("superuser %s is ready", *email)
}

func ensureRole(ctx context.Context, roles auth.RoleStore, name string) (auth.Role, error) {
	role, err := roles.Create(ctx, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, auth.ErrConflict) {
		return auth.Role{}, err
	}
	existing, err := roles.List(ctx)
	if err != nil {
		return auth.Role{}, err
	}
	for _, r := range existing {
		if r.Name == name {
			return r, nil
		}
	}
	return auth.Role{}, auth.ErrNotFound
}

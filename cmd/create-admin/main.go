package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"aftercollage_app_go/backend"
	"aftercollage_app_go/config"
	"aftercollage_app_go/db"
	"aftercollage_app_go/services"

	"golang.org/x/term"
)

func main() {
	grant := flag.String("grant", "", "grant the admin role to an existing user id (local or hosted) instead of creating a user")
	flag.Parse()

	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(backend.Models()...); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()

	if *grant != "" {
		if err := services.GrantAdmin(ctx, db.DB, *grant); err != nil {
			log.Fatalf("Failed to grant admin role: %v", err)
		}
		fmt.Printf("✓ Admin role granted to %s\n", *grant)
		return
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create Admin ===")
	fmt.Println()

	fmt.Print("Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)

	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)

	// Get password securely
	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}
	password := string(passwordBytes)
	fmt.Println() // New line after password input

	if name == "" || email == "" || password == "" {
		log.Fatal("Name, email, and password are required")
	}

	user, err := services.CreateAdmin(ctx, db.DB, name, email, password)
	if err != nil {
		var weak *services.WeakPasswordError
		switch {
		case errors.Is(err, services.ErrUserExists):
			log.Fatalf("User with email %s already exists; use -grant with its id instead", email)
		case errors.As(err, &weak):
			log.Fatalf("Password is too weak: %v", weak)
		}
		log.Fatalf("Failed to create admin: %v", err)
	}

	fmt.Println()
	fmt.Println("✓ Admin created successfully!")
	fmt.Printf("  ID: %s\n", user.ID)
	fmt.Printf("  Name: %s\n", user.Name)
	fmt.Printf("  Email: %s\n", user.Email)
	fmt.Println()
	fmt.Printf("Sign in at %s/admin/login\n", strings.TrimSuffix(cfg.AppURL, "/"))
}

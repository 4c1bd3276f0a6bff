// Package main is a diagnostic tool for testing database connectivity and
// inspecting live platform data. It connects to the database, queries the
// users and courses tables, and prints a summary to stdout. The binary exits
// with a non-zero code on any failure so it can be embedded in health checks
// or CI/CD pipeline steps to gate deployments on a reachable, populated
// database.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

func main() {
	dbPassword := os.Getenv("DATABASE_PASSWORD")
	if dbPassword == "" {
		dbPassword = "edustack"
	}

	connStr := fmt.Sprintf("host=localhost port=5432 user=edustack password=%s dbname=edustack sslmode=disable", dbPassword)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	// Check users
	fmt.Println("=== USERS ===")
	rows, err := db.Query("SELECT id, email, role FROM users ORDER BY created_at")
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, email, role string
		if err := rows.Scan(&id, &email, &role); err != nil {
			log.Printf("Warning: failed to scan user row: %v", err)
			continue
		}
		fmt.Printf("User: %s [%s] (ID: %s)\n", email, role, id)
	}

	// Check courses
	fmt.Println("\n=== COURSES ===")
	rows2, err := db.Query("SELECT id, slug, title, published, description FROM courses")
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows2.Close()

	count := 0
	for rows2.Next() {
		var id, slug, title string
		var published bool
		var description *string
		if err := rows2.Scan(&id, &slug, &title, &published, &description); err != nil {
			log.Printf("Warning: failed to scan course row: %v", err)
			continue
		}
		hasDescription := "NO"
		if description != nil && *description != "" {
			hasDescription = fmt.Sprintf("YES (%d chars)", len(*description))
		}
		fmt.Printf("Course: %s (%s, published: %v) - description: %s\n", title, slug, published, hasDescription)
		count++
	}

	if count == 0 {
		fmt.Println("No courses found!")
	}
}

// Package main clears a dirty schema_migrations flag left behind when a
// migration run was interrupted mid-flight. Until the flag is cleared the
// server refuses to start with a "Dirty database version" error; this tool
// inspects the state, resets dirty=false, and prints the resulting version so
// the next boot can retry the migration cleanly.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

func main() {
	db, err := connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	version, dirty, err := migrationState(db)
	if err != nil {
		log.Fatalf("Failed to check migration state: %v", err)
	}
	log.Printf("Current migration state: version=%d, dirty=%v", version, dirty)

	if !dirty {
		log.Println("Migration state is already clean")
		return
	}

	if _, err := db.Exec("UPDATE schema_migrations SET dirty = false"); err != nil {
		log.Fatalf("Failed to clear dirty flag: %v", err)
	}

	version, dirty, err = migrationState(db)
	if err != nil {
		log.Fatalf("Failed to re-check migration state: %v", err)
	}
	log.Printf("Fixed migration state: version=%d, dirty=%v", version, dirty)
}

func connect() (*sql.DB, error) {
	password := os.Getenv("DATABASE_PASSWORD")
	if password == "" {
		password = "edustack"
	}
	dsn := fmt.Sprintf("host=localhost port=5432 user=edustack password=%s dbname=edustack sslmode=disable", password)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrationState(db *sql.DB) (version int, dirty bool, err error) {
	err = db.QueryRow("SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &dirty)
	return version, dirty, err
}

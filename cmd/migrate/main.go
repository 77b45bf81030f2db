// Applies SQL migrations from the migrations/ directory, creating the
// database first when it does not exist.
//
// Usage: go run ./cmd/migrate [path-to-sql-file]
package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	_ = godotenv.Load()

	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "postgres")
	dbPassword := getEnv("DB_PASSWORD", "postgres")
	dbName := getEnv("DB_NAME", "balm")
	dbSSLMode := getEnv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPassword, dbHost, dbPort, dbName, dbSSLMode)
	if dsnEnv := os.Getenv("DATABASE_URL"); dsnEnv != "" {
		dsn = dsnEnv
	}

	// Connect to the postgres database first to create the target if needed
	postgresDSN := fmt.Sprintf("postgres://%s:%s@%s:%s/postgres?sslmode=%s",
		dbUser, dbPassword, dbHost, dbPort, dbSSLMode)

	postgresDB, err := sql.Open("postgres", postgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to postgres database: %v\n", err)
		os.Exit(1)
	}
	defer postgresDB.Close()

	var exists bool
	err = postgresDB.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", dbName,
	).Scan(&exists)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to check database existence: %v\n", err)
		os.Exit(1)
	}

	if !exists {
		fmt.Printf("Database '%s' does not exist. Creating...\n", dbName)
		if _, err := postgresDB.Exec(fmt.Sprintf("CREATE DATABASE %s", dbName)); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create database: %v\n", err)
			os.Exit(1)
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to ping database: %v\n", err)
		os.Exit(1)
	}

	var files []string
	if len(os.Args) > 1 {
		files = []string{os.Args[1]}
	} else {
		files, err = filepath.Glob(filepath.Join("migrations", "*.up.sql"))
		if err != nil || len(files) == 0 {
			fmt.Fprintln(os.Stderr, "No migration files found under migrations/")
			os.Exit(1)
		}
		sort.Strings(files)
	}

	for _, path := range files {
		sqlBytes, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read migration file: %v\n", err)
			os.Exit(1)
		}

		if _, err := db.Exec(string(sqlBytes)); err != nil {
			// Re-running against an already migrated database is fine
			if !strings.Contains(err.Error(), "already exists") {
				fmt.Fprintf(os.Stderr, "Error executing %s: %v\n", path, err)
				os.Exit(1)
			}
			fmt.Printf("%s already applied (some objects already exist)\n", path)
			continue
		}
		fmt.Printf("Applied %s\n", path)
	}

	fmt.Println("Migration completed successfully!")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/ignite/lead-verifier/internal/repository/postgres"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	listOnly := false
	for _, a := range os.Args[1:] {
		if a == "--list" {
			listOnly = true
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping: %v", err)
	}
	log.Println("Connected to database")

	if !listOnly {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Println("Schema applied")
	}

	tables, err := postgres.Tables(ctx, db)
	if err != nil {
		log.Fatal(err)
	}
	for _, t := range tables {
		fmt.Println(" ", t)
	}
	fmt.Printf("Total: %d tables\n", len(tables))
}

// Package main prints key counts per prefix of an engine badger directory.
//
// Usage:
//
//	DB_PATH=~/RetroArena/data/db go run ./cmd/dbinspect
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/retroarena/eventengine/internal/store"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/RetroArena/data/db")
	}

	s, err := store.New(dbPath, slog.New(slog.DiscardHandler), store.Options{ReadOnly: true})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer s.Close()

	counts, err := s.KeyCounts(context.Background())
	if err != nil {
		log.Fatalf("Error iterating database: %v", err)
	}

	fmt.Println("=== Database Inspection ===")
	fmt.Printf("Path: %s\n", dbPath)
	fmt.Println()

	total := 0
	for _, prefix := range slices.Sorted(maps.Keys(counts)) {
		fmt.Printf("%-24s %8d\n", prefix, counts[prefix])
		total += counts[prefix]
	}

	fmt.Println()
	fmt.Println("=== Summary ===")
	fmt.Printf("Prefixes: %d\n", len(counts))
	fmt.Printf("Total keys: %d\n", total)
}

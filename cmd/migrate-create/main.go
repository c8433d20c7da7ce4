package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var namePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Creates an empty up/down migration pair under db/migrations with a
// timestamp version, the layout cmd/migrate expects.
func main() {
	name := flag.String("name", "", "migration name (lowercase, digits, underscores)")
	dir := flag.String("dir", filepath.Join("db", "migrations"), "migrations directory")
	flag.Parse()

	slug := strings.TrimSpace(*name)
	if slug == "" {
		log.Fatal("migration name is required")
	}
	if !namePattern.MatchString(slug) {
		log.Fatalf("invalid migration name %q, use lowercase, digits and underscores", slug)
	}

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		log.Fatalf("create migrations dir: %v", err)
	}

	version := time.Now().UTC().Format("20060102150405")
	for _, direction := range []string{"up", "down"} {
		path := filepath.Join(*dir, fmt.Sprintf("%s_%s.%s.sql", version, slug, direction))
		if _, err := os.Stat(path); err == nil {
			log.Fatalf("file already exists: %s", path)
		}
		content := fmt.Sprintf("-- %s %s\n", slug, direction)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			log.Fatalf("create %s migration: %v", direction, err)
		}
		log.Printf("created %s", path)
	}
}

package store

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

var (
	migrationFilePattern = regexp.MustCompile(`^(\d+)_.*\.(up|down)\.sql$`)
	createTablePattern   = regexp.MustCompile(`(?i)CREATE TABLE IF NOT EXISTS\s+(\w+)`)
	dropTablePattern     = regexp.MustCompile(`(?i)DROP TABLE IF EXISTS\s+(\w+)`)
)

// Every up migration needs a down that undoes it: same version, and every
// table the up file creates is dropped by its paired down file.
func TestMigrationsPairUpAndDownFiles(t *testing.T) {
	migrationsDir := filepath.Join("..", "..", "db", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	files := map[string]map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		match := migrationFilePattern.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		version, direction := match[1], match[2]
		if files[version] == nil {
			files[version] = map[string]string{}
		}
		if files[version][direction] != "" {
			t.Fatalf("duplicate %s migration file for version %s", direction, version)
		}
		files[version][direction] = filepath.Join(migrationsDir, name)
	}

	if len(files) == 0 {
		t.Fatal("no migrations discovered")
	}

	for version, pair := range files {
		if pair["up"] == "" || pair["down"] == "" {
			t.Fatalf("version %s must include both up and down files", version)
		}

		created := tableNames(t, pair["up"], createTablePattern)
		dropped := tableNames(t, pair["down"], dropTablePattern)
		for table := range created {
			if !dropped[table] {
				t.Fatalf("version %s creates %s but its down file never drops it", version, table)
			}
		}
	}
}

// The intake schema lives in the initial migration; renaming a table in SQL
// without updating the store queries should fail here first.
func TestInitialMigrationCreatesReviewTables(t *testing.T) {
	created := tableNames(t, filepath.Join("..", "..", "db", "migrations", "0001_init.up.sql"), createTablePattern)
	for _, table := range []string{"pending_files", "tags", "collections", "media_items", "media_item_tags"} {
		if !created[table] {
			t.Fatalf("initial migration is missing table %s", table)
		}
	}
}

func tableNames(t *testing.T, path string, pattern *regexp.Regexp) map[string]bool {
	t.Helper()
	sqlBytes, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	names := map[string]bool{}
	for _, match := range pattern.FindAllStringSubmatch(string(sqlBytes), -1) {
		names[match[1]] = true
	}
	return names
}

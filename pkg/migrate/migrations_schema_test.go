package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/partshelf/partshelf-backend/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one migration matching %q, got %d", pattern, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestPartsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_parts.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS parts",
		"CONSTRAINT parts_part_name_key UNIQUE (part_name)",
		"CHECK (quantity >= 0)",
		"CHECK (ordered_quantity >= 0)",
		"DROP TABLE IF EXISTS parts",
	}
	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Errorf("parts migration missing %q", check)
		}
	}
}

func TestAssemblyPartsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_assembly_parts.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS assembly_parts",
		"CONSTRAINT idx_assembly_part UNIQUE (assembly_id, part_id)",
		"FOREIGN KEY (assembly_id) REFERENCES assemblies(id) ON DELETE CASCADE",
		"CHECK (allocated_quantity >= 0)",
		"DROP TABLE IF EXISTS assembly_parts",
	}
	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Errorf("assembly_parts migration missing %q", check)
		}
	}
}

func TestAssembliesMigrationRestrictsStatus(t *testing.T) {
	content := readMigration(t, "*_create_assemblies.sql")
	if !strings.Contains(content, "CHECK (status IN ('Planned', 'In Progress', 'Completed'))") {
		t.Error("assemblies migration missing status check")
	}
}

func TestAliasLinksMigrationEnforcesOneGroupPerPart(t *testing.T) {
	content := readMigration(t, "*_create_aliases.sql")
	if !strings.Contains(content, "CONSTRAINT alias_links_part_id_key UNIQUE (part_id)") {
		t.Error("alias_links migration missing part_id unique constraint")
	}
}

func TestMigrationDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Part Index!!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_part_index.sql") {
		t.Fatalf("unexpected migration filename: %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("validate generated migration: %v", err)
	}
}

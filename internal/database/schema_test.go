package database

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"classifieds/migrations"
)

const migrationsDir = "../../migrations"

var expectedTables = map[string]string{
	"users":          "00001_create_users_table.sql",
	"refresh_tokens": "00002_create_refresh_tokens_table.sql",
	"categories":     "00003_create_categories_table.sql",
	"ads":            "00004_create_ads_table.sql",
	"ad_images":      "00005_create_ad_images_table.sql",
	"favorites":      "00006_create_favorites_table.sql",
	"messages":       "00007_create_messages_table.sql",
	"ad_views":       "00008_create_ad_views_table.sql",
}

func readMigration(t *testing.T, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(migrationsDir, name))
	if err != nil {
		t.Fatalf("Failed to read migration %s: %v", name, err)
	}
	return string(content)
}

func TestMigrationFilesExist(t *testing.T) {
	for _, migration := range expectedTables {
		path := filepath.Join(migrationsDir, migration)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("Migration file %s does not exist", migration)
		}
	}
}

func TestMigrationsAreEmbedded(t *testing.T) {
	for _, migration := range expectedTables {
		if _, err := fs.Stat(migrations.FS, migration); err != nil {
			t.Errorf("Migration %s is not embedded: %v", migration, err)
		}
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		sqlFileCount++
		contentStr := readMigration(t, file.Name())

		for _, directive := range []string{
			"-- +goose Up",
			"-- +goose Down",
			"-- +goose StatementBegin",
			"-- +goose StatementEnd",
		} {
			if !strings.Contains(contentStr, directive) {
				t.Errorf("Migration file %s missing '%s' directive", file.Name(), directive)
			}
		}
	}

	if sqlFileCount == 0 {
		t.Error("No SQL migration files found")
	}
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	for tableName, migrationFile := range expectedTables {
		contentStr := readMigration(t, migrationFile)

		if !strings.Contains(contentStr, "CREATE TABLE IF NOT EXISTS "+tableName+" (") {
			t.Errorf("Migration file %s does not create table %s", migrationFile, tableName)
		}
		if !strings.Contains(contentStr, "DROP TABLE IF EXISTS "+tableName+";") {
			t.Errorf("Migration file %s does not drop table %s in down section", migrationFile, tableName)
		}
	}
}

func TestUsersTableHasRequiredColumns(t *testing.T) {
	contentStr := readMigration(t, expectedTables["users"])

	for _, column := range []string{
		"id UUID PRIMARY KEY",
		"email VARCHAR(255) NOT NULL UNIQUE",
		"password_hash VARCHAR",
		"role VARCHAR",
		"is_active BOOLEAN",
		"last_login TIMESTAMPTZ",
	} {
		if !strings.Contains(contentStr, column) {
			t.Errorf("Users table missing required column definition: %s", column)
		}
	}
	if !strings.Contains(contentStr, "'USER', 'ADMIN'") {
		t.Error("Users table missing role constraint")
	}
}

func TestCategoriesTableRejectsSelfParent(t *testing.T) {
	contentStr := readMigration(t, expectedTables["categories"])

	if !strings.Contains(contentStr, "parent_id <> id") {
		t.Error("Categories table missing self-parent check")
	}
	if !strings.Contains(contentStr, "ON DELETE RESTRICT") {
		t.Error("Categories parent reference must restrict deletes")
	}
}

func TestAdChildrenCascadeOnDelete(t *testing.T) {
	for _, table := range []string{"ad_images", "favorites", "ad_views"} {
		contentStr := readMigration(t, expectedTables[table])
		if !strings.Contains(contentStr, "REFERENCES ads(id) ON DELETE CASCADE") {
			t.Errorf("%s must cascade when its ad is deleted", table)
		}
	}
}

func TestFavoritesTableHasUniqueConstraint(t *testing.T) {
	contentStr := readMigration(t, expectedTables["favorites"])

	if !strings.Contains(contentStr, "UNIQUE (user_id, ad_id)") {
		t.Error("Favorites table missing unique constraint on (user_id, ad_id)")
	}
}

func TestMessagesTableRejectsSelfMessages(t *testing.T) {
	contentStr := readMigration(t, expectedTables["messages"])

	if !strings.Contains(contentStr, "sender_id <> receiver_id") {
		t.Error("Messages table missing sender <> receiver check")
	}
}

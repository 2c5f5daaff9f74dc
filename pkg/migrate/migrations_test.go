package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := fs.Glob(Embedded(), "migrations/*_"+suffix+".sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := fs.ReadFile(Embedded(), matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks ...string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := ValidateFS(Embedded(), embeddedDir); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
}

func TestDiskMigrationsMatchEmbedded(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("on-disk migrations invalid: %v", err)
	}
}

func TestCatalogMigrationGuardsStock(t *testing.T) {
	assertContains(t, readMigration(t, "create_catalog"),
		"CREATE TABLE IF NOT EXISTS products",
		"price numeric(10,2) NOT NULL",
		"CONSTRAINT chk_products_stock_non_negative CHECK (stock >= 0)",
		"FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS products",
	)
}

func TestCartMigrationEnforcesSingleLinePerProduct(t *testing.T) {
	assertContains(t, readMigration(t, "create_carts"),
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_carts_user_id ON carts (user_id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_items_cart_product ON cart_items (cart_id, product_id)",
		"CHECK (quantity >= 1)",
	)
}

func TestOrdersMigrationEnforcesUniqueNumber(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders"),
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number ON orders (order_number)",
		"CHECK (status IN ('new', 'preparation', 'sent', 'delivered'))",
		"DROP TABLE IF EXISTS order_items",
	)
}

func TestLoyaltyMigrationKeysSnapshotsByMonthAndUser(t *testing.T) {
	assertContains(t, readMigration(t, "create_loyalty"),
		"CREATE TABLE IF NOT EXISTS loyalty_events",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_monthly_leaderboards_month_user ON monthly_leaderboards (month, user_id)",
	)
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "oops.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected filename validation error")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := createSQLMigration(dir, "Add Product Tags!", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20260304050607_add_product_tags.sql" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := createSQLMigration(dir, "add product tags", now); err == nil {
		t.Fatal("expected duplicate migration error")
	}
	if _, err := createSQLMigration(dir, "!!!", now); err == nil {
		t.Fatal("expected empty name error")
	}
}

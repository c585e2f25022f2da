package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/grez-lucas/event-locator/internal/scraper/ui"
)

// TestMode selects which kind of page a test runs against.
type TestMode string

const (
	TestModeMock   TestMode = "mock"   // Use static fixtures
	TestModeReplay TestMode = "replay" // Replay recorded sessions in a browser
	TestModeLive   TestMode = "live"   // Hit the real sportsbook
)

func GetTestMode() TestMode {
	mode := os.Getenv("SCRAPER_TEST_MODE")
	if mode == "" {
		return TestModeMock
	}
	return TestMode(mode)
}

// SkipUnlessMode skips the test if not in the required mode
func SkipUnlessMode(t *testing.T, required TestMode) {
	t.Helper()
	if GetTestMode() != required {
		t.Skipf("Skipping: requires SCRAPER_TEST_MODE=%s", required)
	}
}

// FixturePath returns the path of an HTML fixture captured for a site.
func FixturePath(site, name string) string {
	// Get path relative to this file
	_, filename, _, _ := runtime.Caller(0)
	baseDir := filepath.Dir(filepath.Dir(filename)) // up to locate/

	return filepath.Join(baseDir, site, "testdata", "fixtures", name+".html")
}

// LoadFixture reads an HTML fixture file for the given site
func LoadFixture(t *testing.T, site, name string) string {
	t.Helper()

	data, err := os.ReadFile(FixturePath(site, name))
	if err != nil {
		t.Fatalf("Failed to load fixture %s/%s: %v", site, name, err)
	}

	return string(data)
}

// LoadTree parses a fixture into a static tree.
func LoadTree(t *testing.T, site, name string) *ui.HTMLTree {
	t.Helper()

	tree, err := ui.NewHTMLTree(LoadFixture(t, site, name))
	if err != nil {
		t.Fatalf("Failed to parse fixture %s/%s: %v", site, name, err)
	}
	return tree
}

package common

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFileKeepsExistingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nCMS_TOOL_A=from-file\nCMS_TOOL_B=\"quoted\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CMS_TOOL_A", "from-env")
	t.Setenv("CMS_TOOL_B", "")
	if err := os.Unsetenv("CMS_TOOL_B"); err != nil {
		t.Fatal(err)
	}

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("CMS_TOOL_A"); got != "from-env" {
		t.Fatalf("expected existing value to win, got %q", got)
	}
	if got := os.Getenv("CMS_TOOL_B"); got != "quoted" {
		t.Fatalf("expected unquoted file value, got %q", got)
	}
}

func TestLoadEnvFileMissingIsIgnored(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
	if err := LoadEnvFile(""); err != nil {
		t.Fatalf("expected empty path to be ignored, got %v", err)
	}
}

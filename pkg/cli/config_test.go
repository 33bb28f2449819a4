package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestContext_GetExtra_NilMap(t *testing.T) {
	ctx := &Context{
		Name:  "test",
		Extra: nil,
	}

	result := ctx.GetExtra("key")
	if result != "" {
		t.Errorf("GetExtra on nil map = %q, want empty string", result)
	}
}

func TestContext_GetExtra(t *testing.T) {
	ctx := &Context{
		Name: "test",
		Extra: map[string]string{
			"key1": "value1",
			"key2": "value2",
		},
	}

	if got := ctx.GetExtra("key1"); got != "value1" {
		t.Errorf("GetExtra(key1) = %q, want %q", got, "value1")
	}

	if got := ctx.GetExtra("key2"); got != "value2" {
		t.Errorf("GetExtra(key2) = %q, want %q", got, "value2")
	}

	if got := ctx.GetExtra("nonexistent"); got != "" {
		t.Errorf("GetExtra(nonexistent) = %q, want empty string", got)
	}
}

func TestContext_SetExtra_NilMap(t *testing.T) {
	ctx := &Context{
		Name:  "test",
		Extra: nil,
	}

	ctx.SetExtra("key", "value")

	if ctx.Extra == nil {
		t.Fatal("SetExtra should initialize Extra map")
	}

	if got := ctx.Extra["key"]; got != "value" {
		t.Errorf("Extra[key] = %q, want %q", got, "value")
	}
}

func TestLoadConfigWithPath_NewConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "widgetcraft", "config.yaml")

	cfg, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}

	if cfg.Contexts == nil {
		t.Error("Contexts should be initialized")
	}

	// Verify config file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file should be created")
	}
}

func TestConfig_AddContext(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}

	ctx := &Context{
		DataDir: "/var/lib/widgetcraft",
		Feed:    "/etc/widgetcraft/feed.json",
	}

	err = cfg.AddContext("production", ctx)
	if err != nil {
		t.Fatalf("AddContext error: %v", err)
	}

	if cfg.Contexts["production"] == nil {
		t.Fatal("Context not added")
	}

	if cfg.Contexts["production"].Name != "production" {
		t.Errorf("Context.Name = %q, want %q", cfg.Contexts["production"].Name, "production")
	}

	if cfg.Contexts["production"].DataDir != "/var/lib/widgetcraft" {
		t.Errorf("Context.DataDir = %q, want %q", cfg.Contexts["production"].DataDir, "/var/lib/widgetcraft")
	}
}

func TestConfig_DeleteContext(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}

	cfg.AddContext("ctx1", &Context{Feed: "feed1.json"})
	cfg.AddContext("ctx2", &Context{Feed: "feed2.json"})
	cfg.UseContext("ctx1")

	// Delete non-current context
	err = cfg.DeleteContext("ctx2")
	if err != nil {
		t.Fatalf("DeleteContext error: %v", err)
	}

	if _, ok := cfg.Contexts["ctx2"]; ok {
		t.Error("Context should be deleted")
	}

	// Delete current context
	err = cfg.DeleteContext("ctx1")
	if err != nil {
		t.Fatalf("DeleteContext error: %v", err)
	}

	if cfg.CurrentContext != "" {
		t.Errorf("CurrentContext should be cleared, got %q", cfg.CurrentContext)
	}
}

func TestConfig_DeleteContext_NotFound(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}

	err = cfg.DeleteContext("nonexistent")
	if err == nil {
		t.Error("DeleteContext should fail for non-existent context")
	}
}

func TestConfig_UseContext(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}
	cfg.AddContext("production", &Context{Feed: "prod.json"})

	err = cfg.UseContext("production")
	if err != nil {
		t.Fatalf("UseContext error: %v", err)
	}

	if cfg.CurrentContext != "production" {
		t.Errorf("CurrentContext = %q, want %q", cfg.CurrentContext, "production")
	}
}

func TestConfig_UseContext_NotFound(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}

	err = cfg.UseContext("nonexistent")
	if err == nil {
		t.Error("UseContext should fail for non-existent context")
	}
}

func TestConfig_GetCurrentContext_NotSet(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}

	_, err = cfg.GetCurrentContext()
	if err == nil {
		t.Error("GetCurrentContext should fail when no current context")
	}
}

func TestConfig_ResolveContext(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}
	cfg.AddContext("ctx1", &Context{Feed: "feed1.json"})
	cfg.AddContext("ctx2", &Context{Feed: "feed2.json"})
	cfg.UseContext("ctx1")

	// Resolve by name
	ctx, err := cfg.ResolveContext("ctx2")
	if err != nil {
		t.Fatalf("ResolveContext(ctx2) error: %v", err)
	}
	if ctx.Feed != "feed2.json" {
		t.Errorf("Feed = %q, want %q", ctx.Feed, "feed2.json")
	}

	// Resolve current (empty name)
	ctx, err = cfg.ResolveContext("")
	if err != nil {
		t.Fatalf("ResolveContext('') error: %v", err)
	}
	if ctx.Feed != "feed1.json" {
		t.Errorf("Feed = %q, want %q", ctx.Feed, "feed1.json")
	}
}

func TestConfig_ListContexts(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}
	cfg.AddContext("production", &Context{})
	cfg.AddContext("staging", &Context{})
	cfg.AddContext("development", &Context{})

	names := cfg.ListContexts()

	if len(names) != 3 {
		t.Fatalf("len(names) = %d, want 3", len(names))
	}

	// Check all contexts are present
	found := make(map[string]bool)
	for _, name := range names {
		found[name] = true
	}

	for _, expected := range []string{"production", "staging", "development"} {
		if !found[expected] {
			t.Errorf("Missing context: %s", expected)
		}
	}
}

func TestConfig_Path(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}

	if cfg.Path() != configPath {
		t.Errorf("Path() = %q, want %q", cfg.Path(), configPath)
	}

	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestConfig_Persistence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Create and save config
	cfg1, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}
	cfg1.AddContext("test", &Context{
		DataDir:   "/srv/widgets",
		Feed:      "/srv/feed.json",
		Rules:     "/srv/rules.yaml",
		Listen:    "127.0.0.1:8321",
		TimeoutMS: 2500,
	})
	cfg1.UseContext("test")

	// Load again
	cfg2, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}

	if cfg2.CurrentContext != "test" {
		t.Errorf("CurrentContext = %q, want %q", cfg2.CurrentContext, "test")
	}

	ctx, err := cfg2.GetContext("test")
	if err != nil {
		t.Fatalf("GetContext error: %v", err)
	}
	if ctx.DataDir != "/srv/widgets" {
		t.Errorf("DataDir = %q, want %q", ctx.DataDir, "/srv/widgets")
	}
	if ctx.Listen != "127.0.0.1:8321" {
		t.Errorf("Listen = %q, want %q", ctx.Listen, "127.0.0.1:8321")
	}
	if ctx.TimeoutMS != 2500 {
		t.Errorf("TimeoutMS = %d, want 2500", ctx.TimeoutMS)
	}
}

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeRepoConfig(t *testing.T, root, body string) string {
	t.Helper()
	dir := filepath.Join(root, ".meishi")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StoreBackend != BackendSQLite {
		t.Errorf("StoreBackend = %q, want %q", cfg.StoreBackend, BackendSQLite)
	}
	if cfg.Port != DefaultConfig().Port {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultConfig().Port)
	}
	if cfg.RedisPrefix != "meishi:" {
		t.Errorf("RedisPrefix = %q, want meishi:", cfg.RedisPrefix)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	body := `{"port": 9090, "store_backend": "redis", "redis_addr": "localhost:6379", "cors_origins": ["http://localhost:5173"]}`
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.StoreBackend != BackendRedis || cfg.RedisAddr != "localhost:6379" {
		t.Errorf("store = %q at %q", cfg.StoreBackend, cfg.RedisAddr)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:5173" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	// untouched defaults survive
	if cfg.GeminiModel != DefaultConfig().GeminiModel {
		t.Errorf("GeminiModel = %q, want default", cfg.GeminiModel)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(`{"disabled_tools": ["contact_delete", "policy_delete"]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.DisabledTools) != 2 || cfg.DisabledTools[0] != "contact_delete" || cfg.DisabledTools[1] != "policy_delete" {
		t.Errorf("DisabledTools = %v", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	globalConfig := `{"port": 8000, "disabled_tools": ["contact_delete"]}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	writeRepoConfig(t, repoRoot, `{"port": 5000, "disabled_tools": ["policy_delete"]}`)

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	// Repo overrides scalar
	if cfg.Port != 5000 {
		t.Errorf("Port = %d, want 5000 (repo override)", cfg.Port)
	}
	// Arrays merged
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	cfg, err := LoadWithRepo(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if len(cfg.DisabledTools) != 0 {
		t.Errorf("DisabledTools = %v, want empty", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_WalksUpward(t *testing.T) {
	tmpDir := t.TempDir()
	writeRepoConfig(t, tmpDir, `{"disabled_tools": ["contact_delete"]}`)

	subdir := filepath.Join(tmpDir, "subdir", "deeper")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	cfg, err := LoadWithRepo(t.TempDir(), subdir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "contact_delete" {
		t.Errorf("DisabledTools = %v, want [contact_delete]", cfg.DisabledTools)
	}
}

func TestFindRepoConfig(t *testing.T) {
	tmpDir := t.TempDir()
	if found := FindRepoConfig(tmpDir); found != "" {
		t.Errorf("FindRepoConfig() = %q, want empty string", found)
	}

	configPath := writeRepoConfig(t, tmpDir, `{}`)
	if found := FindRepoConfig(tmpDir); found != configPath {
		t.Errorf("FindRepoConfig() = %q, want %q", found, configPath)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{Port: 10000, DBMaxOpenConns: 5, GeminiModel: "a"}
	overlay := &Config{Port: 5000, GeminiModel: "b"}

	result := Merge(base, overlay)

	if result.Port != 5000 {
		t.Errorf("Port = %d, want 5000 (overlay)", result.Port)
	}
	if result.DBMaxOpenConns != 5 {
		t.Errorf("DBMaxOpenConns = %d, want 5 (base, overlay is zero)", result.DBMaxOpenConns)
	}
	if result.GeminiModel != "b" {
		t.Errorf("GeminiModel = %q, want b", result.GeminiModel)
	}
}

func TestMerge_BooleanOr(t *testing.T) {
	result := Merge(&Config{AllowUnsafePaths: true}, &Config{MinioUseSSL: true})

	if !result.AllowUnsafePaths || !result.MinioUseSSL {
		t.Errorf("booleans should be base OR overlay, got %+v", result)
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{DisabledTools: []string{"contact_delete", "policy_delete"}}
	overlay := &Config{DisabledTools: []string{"policy_delete", " column_apply ", ""}}

	result := Merge(base, overlay)

	want := []string{"contact_delete", "policy_delete", "column_apply"}
	if len(result.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", result.DisabledTools, want)
	}
	for i := range want {
		if result.DisabledTools[i] != want[i] {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, result.DisabledTools[i], want[i])
		}
	}
}

func TestMerge_DisabledTypes(t *testing.T) {
	result := Merge(&Config{DisabledTypes: []string{"policy"}}, &Config{DisabledTypes: []string{"column", "policy"}})

	if len(result.DisabledTypes) != 2 || result.DisabledTypes[0] != "policy" || result.DisabledTypes[1] != "column" {
		t.Errorf("DisabledTypes = %v, want [policy column]", result.DisabledTypes)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"GEMINI_API_KEY":        "secret",
		"MEISHI_REDIS_ADDR":     "redis:6379",
		"MEISHI_STORE_BACKEND":  "redis",
		"MEISHI_MINIO_ENDPOINT": "minio:9000",
		"MEISHI_LOG_LEVEL":      "  ",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	ApplyEnv(cfg, lookup)

	if cfg.GeminiAPIKey != "secret" {
		t.Errorf("GeminiAPIKey = %q", cfg.GeminiAPIKey)
	}
	if cfg.StoreBackend != BackendRedis || cfg.RedisAddr != "redis:6379" {
		t.Errorf("store = %q at %q", cfg.StoreBackend, cfg.RedisAddr)
	}
	if cfg.MinioEndpoint != "minio:9000" {
		t.Errorf("MinioEndpoint = %q", cfg.MinioEndpoint)
	}
	// blank values do not clobber
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"redis without addr", func(c *Config) { c.StoreBackend = BackendRedis }, true},
		{"redis with addr", func(c *Config) { c.StoreBackend = BackendRedis; c.RedisAddr = "x:1" }, false},
		{"unknown backend", func(c *Config) { c.StoreBackend = "mongo" }, true},
		{"bad port", func(c *Config) { c.Port = 70000 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level() = %v, want debug", cfg.Level())
	}
	cfg.LogLevel = "loud"
	if cfg.Level() != slog.LevelInfo {
		t.Errorf("Level() = %v, want info fallback", cfg.Level())
	}
}

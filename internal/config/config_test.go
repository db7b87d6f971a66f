package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int {
	return &i
}

func validConfig() *Config {
	return &Config{
		Store:        StoreFile,
		SnapshotPath: "snapshot.yaml",
		Programs: []ProgramConfig{
			{Code: "TKJ", Name: "Teknik Komputer dan Jaringan", Quota: intPtr(72)},
			{Code: "AKL", Name: "Akuntansi dan Keuangan Lembaga"},
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unknown store", func(c *Config) { c.Store = "sheets" }, "validation failed"},
		{"postgres without url", func(c *Config) { c.Store = StorePostgres }, "DatabaseURL"},
		{"file without path", func(c *Config) { c.SnapshotPath = "" }, "SnapshotPath"},
		{"no programs", func(c *Config) { c.Programs = nil }, "Programs"},
		{"program missing name", func(c *Config) { c.Programs[1].Name = "" }, "Name"},
		{"quota out of range", func(c *Config) { c.Programs[0].Quota = intPtr(250) }, "Quota"},
		{"duplicate code", func(c *Config) { c.Programs[1].Code = "TKJ" }, "duplicate program code"},
		{"reserve out of range", func(c *Config) { c.ReservePercent = 150 }, "ReservePercent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ZeroQuotaAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.Programs[0].Quota = intPtr(0)
	assert.NoError(t, Validate(cfg))
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromPath_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "admissions_config.yaml", `
store: file
snapshotPath: data/snapshot.yaml
programs:
  - code: TKJ
    name: Teknik Komputer dan Jaringan
    quota: 40
  - code: AKL
    name: Akuntansi dan Keuangan Lembaga
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, 36, cfg.DefaultQuota)
	assert.Equal(t, 10, cfg.ReservePercent)
	assert.Equal(t, 10*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 4, cfg.MaxParallelPrograms)
	assert.Equal(t, map[string]int{"TKJ": 40}, cfg.SeedQuotas())
	assert.Equal(t, "Akuntansi dan Keuangan Lembaga", cfg.ProgramNames()["AKL"])

	programs := cfg.ProgramList()
	require.Len(t, programs, 2)
	assert.Equal(t, "TKJ", programs[0].Code)
}

func TestLoadFromPath_ExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "admissions_config.yaml", `
store: file
snapshotPath: snapshot.yaml
defaultQuota: 20
reservePercent: 15
storeTimeout: 3s
maxParallelPrograms: 2
programs:
  - code: TKJ
    name: Teknik Komputer dan Jaringan
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.DefaultQuota)
	assert.Equal(t, 15, cfg.ReservePercent)
	assert.Equal(t, 3*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 2, cfg.MaxParallelPrograms)
}

func TestLoadFromPath_DatabaseURLFromEnv(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "postgres://admissions@localhost:5432/admissions")

	dir := t.TempDir()
	path := writeConfig(t, dir, "admissions_config.yaml", `
store: postgres
programs:
  - code: TKJ
    name: Teknik Komputer dan Jaringan
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://admissions@localhost:5432/admissions", cfg.DatabaseURL)
}

func TestLoadFromPath_DotEnvNextToConfig(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "")
	os.Unsetenv(DatabaseURLEnv)

	dir := t.TempDir()
	writeConfig(t, dir, ".env", "DATABASE_URL=postgres://from-dotenv/admissions\n")
	path := writeConfig(t, dir, "admissions_config.yaml", `
store: postgres
programs:
  - code: TKJ
    name: Teknik Komputer dan Jaringan
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-dotenv/admissions", cfg.DatabaseURL)
}

func TestLoadFromPath_MalformedDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".env", "DATABASE_URL=\"postgres://unterminated\n")
	path := writeConfig(t, dir, "admissions_config.yaml", `
store: file
snapshotPath: snapshot.yaml
programs:
  - code: TKJ
    name: Teknik Komputer dan Jaringan
`)

	_, err := LoadFromPath(path)
	assert.ErrorContains(t, err, "failed to load .env")
}

func TestLoadFromPath_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFromPath(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	path := writeConfig(t, dir, "bad.yaml", "store: [unclosed")
	_, err = LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")

	path = writeConfig(t, dir, "invalid.yaml", "store: file\nsnapshotPath: s.yaml\n")
	_, err = LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestFindConfigFile_PrefersEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())

	writeConfig(t, dir, "admissions_config.yaml", "store: file\n")
	writeConfig(t, dir, "admissions_config.test.yaml", "store: file\n")

	path, err := findConfigFile("test")
	require.NoError(t, err)
	assert.Equal(t, "admissions_config.test.yaml", path)

	path, err = findConfigFile("prod")
	require.NoError(t, err)
	assert.Equal(t, "admissions_config.yaml", path)
}

func TestFindConfigFile_NotFound(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	_, err := findConfigFile("test")
	assert.Error(t, err)
}

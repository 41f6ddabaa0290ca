// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mknursery/internal/platform/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

/*
TestLoad_MemoryDefaults verifies defaults when only the required keys are present.
*/
func TestLoad_MemoryDefaults(t *testing.T) {
	t.Setenv("BACKEND", config.BackendMemory)
	t.Setenv("SESSION_SECRET", testSecret)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "plants", cfg.StorageBucket)
	assert.Equal(t, 5*time.Second, cfg.SessionCheckTimeout)
	assert.Equal(t, 10*time.Second, cfg.BackendTimeout)
	assert.True(t, cfg.IsDevelopment())
}

/*
TestLoad_EnvFile checks that a .env file feeds the parser and the process env still wins.
*/
func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := strings.Join([]string{
		"BACKEND=memory",
		"SESSION_SECRET=" + testSecret,
		"STORAGE_BUCKET=from-file",
		"SERVER_PORT=9000",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("SERVER_PORT", "7000")
	// godotenv only fills keys that are unset, so clear the ones the file provides.
	for _, key := range []string{"BACKEND", "SESSION_SECRET", "STORAGE_BUCKET"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.StorageBucket)
	assert.Equal(t, "7000", cfg.ServerPort)
}

/*
TestValidate_Problems lists the cross-field rules.
*/
func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		problem string
	}{
		{"postgres_without_dsn", config.Config{Backend: "postgres", RedisURL: "redis://x", StorageDriver: "local", SessionSecret: testSecret}, "DATABASE_URL"},
		{"postgres_without_redis", config.Config{Backend: "postgres", DatabaseURL: "postgres://x", StorageDriver: "local", SessionSecret: testSecret}, "REDIS_URL"},
		{"unknown_backend", config.Config{Backend: "sqlite", StorageDriver: "local", SessionSecret: testSecret}, "BACKEND must be"},
		{"unknown_storage", config.Config{Backend: "memory", StorageDriver: "ftp", SessionSecret: testSecret}, "STORAGE_DRIVER must be"},
		{"s3_without_endpoint", config.Config{Backend: "memory", StorageDriver: "s3", S3Region: "auto", SessionSecret: testSecret}, "S3_ENDPOINT"},
		{"short_secret", config.Config{Backend: "memory", StorageDriver: "local", SessionSecret: "short"}, "SESSION_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.problem)
		})
	}
}

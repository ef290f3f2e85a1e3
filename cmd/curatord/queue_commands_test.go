package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := `[paths]
staging_dir = "` + filepath.Join(dir, "staging") + `"
log_dir = "` + filepath.Join(dir, "log") + `"

[provider]
access_token = "test-token"
owner_id = 1

[workers]
count = 2
video_capable = 1
`
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestQueueCountOnFreshDatabase(t *testing.T) {
	configPath := writeTestConfig(t)
	out := runCommand(t, "--config", configPath, "queue", "count")
	if strings.TrimSpace(out) != "0" {
		t.Fatalf("queue count = %q, want 0", out)
	}
}

func TestQueueListOnFreshDatabase(t *testing.T) {
	configPath := writeTestConfig(t)
	out := runCommand(t, "--config", configPath, "queue", "list")
	if !strings.Contains(out, "queue is empty") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSyncSchedulesTask(t *testing.T) {
	configPath := writeTestConfig(t)
	out := runCommand(t, "--config", configPath, "sync")
	if !strings.Contains(out, "sync check scheduled") {
		t.Fatalf("unexpected output %q", out)
	}

	count := runCommand(t, "--config", configPath, "queue", "count")
	if strings.TrimSpace(count) != "1" {
		t.Fatalf("queue count = %q, want 1", count)
	}
}

func TestConfigValidate(t *testing.T) {
	configPath := writeTestConfig(t)
	out := runCommand(t, "--config", configPath, "config", "validate")
	if !strings.Contains(out, "configuration is valid") {
		t.Fatalf("unexpected output %q", out)
	}
}

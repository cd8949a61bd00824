package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fullYAML = `
database:
  driver: mysql
  host: 10.0.0.5
  port: 3307
  name: taskcycle_prod
  user: taskcycle
  password: secret

verification:
  max_scoring_cycles: 3

recurrence:
  cron: "30 1 * * *"
  horizon_days: 90
  abandon_after_days: 14

notify:
  slack:
    bot_token: xoxb-test
    channel: C0TASKS
  discord:
    token: discord-test
    channel: "123456"

server:
  port: 9090

worker:
  poll_interval_seconds: 10
  lease_ttl_seconds: 120

directory:
  - id: alice
    core_tasks: [ct-1, ct-2]
    active: true
    hr: true
  - id: bob
    core_tasks: [ct-3]
    active: true
`

const minimalYAML = `
database:
  driver: sqlite
  path: local.db
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Driver != DriverMySQL {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, DriverMySQL)
	}
	if cfg.Database.Host != "10.0.0.5" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "10.0.0.5")
	}
	if cfg.Database.Port != 3307 {
		t.Errorf("Database.Port = %d, want 3307", cfg.Database.Port)
	}
	if cfg.Verification.MaxScoringCycles != 3 {
		t.Errorf("MaxScoringCycles = %d, want 3", cfg.Verification.MaxScoringCycles)
	}
	if cfg.Recurrence.Cron != "30 1 * * *" {
		t.Errorf("Recurrence.Cron = %q, want %q", cfg.Recurrence.Cron, "30 1 * * *")
	}
	if cfg.Recurrence.HorizonDays != 90 {
		t.Errorf("HorizonDays = %d, want 90", cfg.Recurrence.HorizonDays)
	}
	if cfg.Recurrence.AbandonAfterDays != 14 {
		t.Errorf("AbandonAfterDays = %d, want 14", cfg.Recurrence.AbandonAfterDays)
	}
	if cfg.Notify.Slack.BotToken != "xoxb-test" {
		t.Errorf("Slack.BotToken = %q, want %q", cfg.Notify.Slack.BotToken, "xoxb-test")
	}
	if cfg.Notify.Discord.Channel != "123456" {
		t.Errorf("Discord.Channel = %q, want %q", cfg.Notify.Discord.Channel, "123456")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Worker.PollIntervalSeconds != 10 {
		t.Errorf("PollIntervalSeconds = %d, want 10", cfg.Worker.PollIntervalSeconds)
	}
	if cfg.Worker.LeaseTTLSeconds != 120 {
		t.Errorf("LeaseTTLSeconds = %d, want 120", cfg.Worker.LeaseTTLSeconds)
	}

	if len(cfg.Directory) != 2 {
		t.Fatalf("len(Directory) = %d, want 2", len(cfg.Directory))
	}
	alice := cfg.Directory[0]
	if alice.ID != "alice" {
		t.Errorf("Directory[0].ID = %q, want %q", alice.ID, "alice")
	}
	if len(alice.CoreTasks) != 2 {
		t.Errorf("Directory[0].CoreTasks = %v, want 2 entries", alice.CoreTasks)
	}
	if !alice.Active || !alice.HR {
		t.Errorf("Directory[0] Active/HR = %v/%v, want true/true", alice.Active, alice.HR)
	}
}

func TestParse_MinimalDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, DriverSQLite)
	}
	if cfg.Database.Path != "local.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "local.db")
	}
	if cfg.Verification.MaxScoringCycles != 2 {
		t.Errorf("MaxScoringCycles = %d, want default 2", cfg.Verification.MaxScoringCycles)
	}
	if cfg.Recurrence.Cron != "0 0 * * *" {
		t.Errorf("Recurrence.Cron = %q, want default %q", cfg.Recurrence.Cron, "0 0 * * *")
	}
	if cfg.Recurrence.HorizonDays != 365 {
		t.Errorf("HorizonDays = %d, want default 365", cfg.Recurrence.HorizonDays)
	}
	if cfg.Recurrence.AbandonAfterDays != 7 {
		t.Errorf("AbandonAfterDays = %d, want default 7", cfg.Recurrence.AbandonAfterDays)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Worker.PollIntervalSeconds != 30 {
		t.Errorf("PollIntervalSeconds = %d, want default 30", cfg.Worker.PollIntervalSeconds)
	}
	if cfg.Worker.LeaseTTLSeconds != 300 {
		t.Errorf("LeaseTTLSeconds = %d, want default 300", cfg.Worker.LeaseTTLSeconds)
	}
}

func TestParse_InvalidDriver(t *testing.T) {
	_, err := Parse([]byte("database:\n  driver: postgres\n"))
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), "database.driver") {
		t.Errorf("error = %q, want to mention database.driver", err.Error())
	}
}

func TestParse_MySQLRequiresUser(t *testing.T) {
	_, err := Parse([]byte("database:\n  driver: mysql\n"))
	if err == nil {
		t.Fatal("expected error for mysql without user")
	}
	if !strings.Contains(err.Error(), "database.user is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "database.user is required")
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte(":\nnot yaml ["))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: parse")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, DriverSQLite)
	}
	if cfg.Database.Path != "taskcycle.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "taskcycle.db")
	}
	if cfg.Verification.MaxScoringCycles != 2 {
		t.Errorf("MaxScoringCycles = %d, want 2", cfg.Verification.MaxScoringCycles)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskcycle.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Name != "taskcycle_prod" {
		t.Errorf("Database.Name = %q, want %q", cfg.Database.Name, "taskcycle_prod")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: read")
	}
}

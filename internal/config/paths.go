package config

import "path/filepath"

// Paths collects every on-disk location the runtime touches, resolved once
// from Config at process start and threaded explicitly into each component
// that needs it. Nothing in this package keeps a package-level singleton.
type Paths struct {
	ConfigFile  string // config file path resolved at startup
	Workspace   string // agent workspace root
	Memory      string // <workspace>/memory
	Skills      string // <workspace>/skills
	SessionsDir string // session .jsonl files
	DataDir     string // ~/.clawcore (cron store, logs)
	CronJobs    string // <data-dir>/cron/jobs.json
	Heartbeat   string // <workspace>/HEARTBEAT.md
}

// NewPaths derives a Paths from a loaded Config and the resolved config file
// path it was loaded from.
func NewPaths(cfg *Config, configFile string) Paths {
	workspace := cfg.WorkspacePath()
	dataDir := ExpandHome("~/.clawcore")
	return Paths{
		ConfigFile:  configFile,
		Workspace:   workspace,
		Memory:      filepath.Join(workspace, "memory"),
		Skills:      filepath.Join(workspace, "skills"),
		SessionsDir: ExpandHome(cfg.Sessions.Storage),
		DataDir:     dataDir,
		CronJobs:    filepath.Join(dataDir, "cron", "jobs.json"),
		Heartbeat:   filepath.Join(workspace, "HEARTBEAT.md"),
	}
}

package check

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/suykerbuyk/flywheel/internal/config"
	"github.com/suykerbuyk/flywheel/internal/friction"
	"github.com/suykerbuyk/flywheel/internal/logging"
	"github.com/suykerbuyk/flywheel/internal/store"
)

// Status represents the outcome of a single check.
type Status int

const (
	Pass Status = iota
	Warn
	Fail
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Warn:
		return "warn"
	case Fail:
		return "FAIL"
	default:
		return "unknown"
	}
}

// Result holds the outcome of a single check.
type Result struct {
	Name   string
	Status Status
	Detail string
}

// Report aggregates all check results.
type Report struct {
	Results []Result
}

// HasFailures returns true if any result has Fail status.
func (r Report) HasFailures() bool {
	for _, res := range r.Results {
		if res.Status == Fail {
			return true
		}
	}
	return false
}

// Format returns the human-readable report string.
func (r Report) Format() string {
	if len(r.Results) == 0 {
		return "fw check\n\n  no checks ran\n"
	}

	maxName := 0
	for _, res := range r.Results {
		if len(res.Name) > maxName {
			maxName = len(res.Name)
		}
	}

	var b strings.Builder
	b.WriteString("fw check\n\n")

	var passed, warnings, failures int
	for _, res := range r.Results {
		switch res.Status {
		case Pass:
			passed++
		case Warn:
			warnings++
		case Fail:
			failures++
		}
		fmt.Fprintf(&b, "  %-4s  %-*s  %s\n", res.Status, maxName, res.Name, res.Detail)
	}

	fmt.Fprintf(&b, "\n%d passed, %d warning, %d failure\n", passed, warnings, failures)
	return b.String()
}

// CheckConfig reports the resolved config path, or that defaults are in use.
func CheckConfig() Result {
	cfgPath := filepath.Join(config.ConfigDir(), "config.toml")
	if _, err := os.Stat(cfgPath); err != nil {
		return Result{Name: "config", Status: Warn, Detail: config.CompressHome(cfgPath) + " not found (using defaults)"}
	}
	return Result{Name: "config", Status: Pass, Detail: config.CompressHome(cfgPath)}
}

// CheckDataDir checks whether the data directory exists.
func CheckDataDir(path string) Result {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return Result{Name: "data", Status: Pass, Detail: config.CompressHome(path)}
	}
	return Result{Name: "data", Status: Fail, Detail: path + " not found (run fw init)"}
}

// CheckDatabase opens an existing database, which applies pending
// migrations, and reports its schema version and row counts.
func CheckDatabase(ctx context.Context, path string) Result {
	if _, err := os.Stat(path); err != nil {
		return Result{Name: "database", Status: Warn, Detail: config.CompressHome(path) + " not created yet"}
	}

	st, err := store.Open(ctx, path)
	if err != nil {
		return Result{Name: "database", Status: Fail, Detail: err.Error()}
	}
	defer st.Close()

	version, err := st.SchemaVersion(ctx)
	if err != nil {
		return Result{Name: "database", Status: Fail, Detail: err.Error()}
	}
	counts, err := st.Counts(ctx)
	if err != nil {
		return Result{Name: "database", Status: Fail, Detail: err.Error()}
	}
	return Result{
		Name:   "database",
		Status: Pass,
		Detail: fmt.Sprintf("schema v%d (%d frictions, %d analyses)", version, counts.Frictions, counts.Analyses),
	}
}

// CheckRules validates the classifier rule set the config selects.
func CheckRules(cfg config.Config) Result {
	c, err := cfg.LoadClassifier()
	if err != nil {
		return Result{Name: "rules", Status: Fail, Detail: err.Error()}
	}
	n := len(c.Rules())
	if cfg.Classifier.RulesFile == "" {
		return Result{Name: "rules", Status: Pass, Detail: fmt.Sprintf("built-in (%d rules)", n)}
	}
	return Result{Name: "rules", Status: Pass, Detail: fmt.Sprintf("%s (%d rules)", config.CompressHome(cfg.Classifier.RulesFile), n)}
}

// CheckInbox checks that every stage directory exists under the inbox.
func CheckInbox(dir string) Result {
	var missing []string
	for _, st := range friction.Stages() {
		if info, err := os.Stat(filepath.Join(dir, string(st))); err != nil || !info.IsDir() {
			missing = append(missing, string(st))
		}
	}
	switch {
	case len(missing) == 0:
		return Result{Name: "inbox", Status: Pass, Detail: config.CompressHome(dir)}
	case len(missing) == len(friction.Stages()):
		return Result{Name: "inbox", Status: Warn, Detail: config.CompressHome(dir) + " not set up (run fw init)"}
	default:
		return Result{Name: "inbox", Status: Warn, Detail: "missing stage dirs: " + strings.Join(missing, ", ")}
	}
}

// CheckServerAddr checks that the listen address parses.
func CheckServerAddr(addr string) Result {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return Result{Name: "server", Status: Fail, Detail: fmt.Sprintf("invalid addr %q: %v", addr, err)}
	}
	return Result{Name: "server", Status: Pass, Detail: addr}
}

// CheckLogLevel checks the configured log level name.
func CheckLogLevel(level string) Result {
	if _, err := logging.ParseLevel(level); err != nil {
		return Result{Name: "log", Status: Warn, Detail: err.Error() + " (using info)"}
	}
	if level == "" {
		level = "info"
	}
	return Result{Name: "log", Status: Pass, Detail: level}
}

// Run executes all checks against the given config and returns a report.
func Run(ctx context.Context, cfg config.Config) Report {
	var results []Result

	results = append(results, CheckConfig())
	results = append(results, CheckDataDir(cfg.DataDir))
	results = append(results, CheckDatabase(ctx, cfg.DatabasePath()))
	results = append(results, CheckRules(cfg))
	results = append(results, CheckInbox(cfg.Inbox.Dir))
	results = append(results, CheckServerAddr(cfg.Server.Addr))
	results = append(results, CheckLogLevel(cfg.Log.Level))

	return Report{Results: results}
}

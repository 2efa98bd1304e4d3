package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/steveyegge/j2o/internal/config"
	"github.com/steveyegge/j2o/internal/jira"
	"github.com/steveyegge/j2o/internal/lockfile"
	"github.com/steveyegge/j2o/internal/openproject"
	"github.com/steveyegge/j2o/internal/telemetry"
	"github.com/steveyegge/j2o/internal/timeparsing"
	"github.com/steveyegge/j2o/internal/tracker"
	"github.com/steveyegge/j2o/internal/ui"
)

func newJiraClient(c *config.Config) *jira.Client {
	jc := jira.NewClient(c.Jira.URL, c.Jira.Username, c.Jira.APIToken)
	jc.Logger = logger.With("system", "jira")
	return jc
}

func newOpenProjectClient(c *config.Config) *openproject.Client {
	oc := openproject.NewClient(c.OpenProject.URL, c.OpenProject.APIKey, c.OpenProject.CorrelationField)
	oc.ActAsHeader = c.OpenProject.ActAsHeader
	oc.Logger = logger.With("system", "openproject")
	return oc
}

// buildEngine wires the Jira reader, the OpenProject writer, the mapping
// tables and the user map into an engine.
func buildEngine(c *config.Config) (*tracker.Engine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	reader := jira.NewReader(newJiraClient(c))
	if c.Migrate.UpdatedSince != "" {
		since, err := timeparsing.ParseSince(c.Migrate.UpdatedSince, time.Now())
		if err != nil {
			return nil, fmt.Errorf("--updated-since: %w", err)
		}
		reader.UpdatedSince = since
		logger.Info("limiting source query", "updated_since", since.Format(time.RFC3339))
	}

	tables, err := config.LoadMappings(c.Migrate.MappingsFile)
	if err != nil {
		return nil, err
	}
	users, err := config.LoadUsers(c.Migrate.UsersFile)
	if err != nil {
		return nil, err
	}

	engine := tracker.NewEngine(reader, telemetry.WrapWriter(newOpenProjectClient(c)))
	engine.Tables = tables
	engine.Identities = users
	engine.Logger = logger
	if !quietFlag && !jsonOutput {
		engine.OnMessage = func(msg string) { fmt.Fprintln(os.Stderr, "  "+msg) }
	}
	engine.OnWarning = func(msg string) { fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderWarn("Warning:"), msg) }
	return engine, nil
}

// acquireRunLock keeps two live runs against the same project pair apart.
// Dry runs write nothing and skip the lock.
func acquireRunLock(c *config.Config, command string) (*lockfile.Lock, error) {
	if c.Migrate.DryRun {
		return nil, nil
	}
	path := lockfile.Path(lockfile.DefaultDir(), c.Jira.Project, c.OpenProject.ProjectID)
	lock, err := lockfile.Acquire(path, lockfile.Info{Command: command, Project: c.Jira.Project})
	if errors.Is(err, lockfile.ErrLockBusy) {
		return nil, fmt.Errorf("%w\n  wait for it to finish or stop it first", err)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("run lock acquired", "path", path)
	return lock, nil
}

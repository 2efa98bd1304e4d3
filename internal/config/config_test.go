package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/j2o/internal/types"
)

// clearEnv blanks every variable Load consults so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range settings {
		for _, name := range s.env {
			t.Setenv(name, "")
			require.NoError(t, os.Unsetenv(name))
		}
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const fullConfig = `
jira:
  url: https://example.atlassian.net/
  username: ops@example.com
  api_token: jira-secret-token
  project: PROJ
openproject:
  url: https://op.example.com
  api_key: op-secret-key
  project_id: migrated
  correlation_field: customField7
migrate:
  default_actor: migrator
log:
  level: debug
`

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeFile(t, "j2o.yaml", fullConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://example.atlassian.net", cfg.Jira.URL)
	assert.Equal(t, "ops@example.com", cfg.Jira.Username)
	assert.Equal(t, "PROJ", cfg.Jira.Project)
	assert.Equal(t, "customField7", cfg.OpenProject.CorrelationField)
	assert.True(t, cfg.Migrate.Incremental, "incremental defaults on")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NotEmpty(t, cfg.File)
	assert.NoError(t, cfg.Validate())

	opts := cfg.Options()
	assert.Equal(t, "PROJ", opts.ProjectKey)
	assert.Equal(t, "migrated", opts.ProjectID)
	assert.Equal(t, "migrator", opts.DefaultActor)
	assert.NoError(t, opts.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "j2o.yaml", fullConfig)
	t.Setenv("J2O_JIRA_PROJECT", "OTHER")
	t.Setenv("J2O_MIGRATE_INCREMENTAL", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "OTHER", cfg.Jira.Project)
	assert.False(t, cfg.Migrate.Incremental)
}

func TestLoadLegacyEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("JIRA_URL", "https://legacy.atlassian.net")
	t.Setenv("JIRA_API_TOKEN", "tok")
	t.Setenv("OPENPROJECT_API_KEY", "key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://legacy.atlassian.net", cfg.Jira.URL)
	assert.Equal(t, "tok", cfg.Jira.APIToken)
	assert.Equal(t, "key", cfg.OpenProject.APIKey)
	assert.Empty(t, cfg.File)
}

func TestLoadPrefixedEnvWins(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("JIRA_URL", "https://legacy.atlassian.net")
	t.Setenv("J2O_JIRA_URL", "https://new.atlassian.net")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://new.atlassian.net", cfg.Jira.URL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateListsEveryMissingKey(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	for _, key := range []string{"jira.url", "jira.api_token", "jira.project", "openproject.url",
		"openproject.api_key", "openproject.project_id", "openproject.correlation_field"} {
		assert.Contains(t, err.Error(), key+" not configured")
	}
	assert.Contains(t, err.Error(), "export JIRA_API_TOKEN=VALUE")
	assert.NotContains(t, err.Error(), "jira.username")
}

func TestRedacted(t *testing.T) {
	cfg := &Config{}
	cfg.Jira.APIToken = "jira-secret-token"
	cfg.OpenProject.APIKey = "short"

	red := cfg.Redacted()
	assert.Equal(t, "jira****", red.Jira.APIToken)
	assert.Equal(t, "****", red.OpenProject.APIKey)
	assert.Equal(t, "jira-secret-token", cfg.Jira.APIToken, "original untouched")
}

func TestLoadMappings(t *testing.T) {
	path := writeFile(t, "mappings.toml", `
unknown_status = "On hold"

[types]
"Story" = "Feature"

[statuses]
"QA" = "In testing"

[links.Clones]
type = "duplicates"
`)
	tables, err := LoadMappings(path)
	require.NoError(t, err)

	assert.Equal(t, "Feature", tables.Types["story"])
	assert.Equal(t, "Bug", tables.Types["bug"], "defaults kept")
	assert.Equal(t, "In testing", tables.Statuses["qa"])
	assert.Equal(t, "On hold", tables.UnknownStatus)
	assert.Equal(t, types.RelDuplicates, tables.Links.Lookup("clones").Type)
	assert.Equal(t, types.RelBlocks, tables.Links.Lookup("Blocks").Type)
}

func TestLoadMappingsDefaults(t *testing.T) {
	tables, err := LoadMappings("")
	require.NoError(t, err)
	assert.Equal(t, "New", tables.UnknownStatus)
}

func TestLoadMappingsRejectsUnknownKeys(t *testing.T) {
	_, err := LoadMappings(writeFile(t, "m.toml", "[typos]\nbug = \"Bug\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "typos")
}

func TestLoadMappingsRejectsUnknownRelation(t *testing.T) {
	_, err := LoadMappings(writeFile(t, "m.toml", "[links.Weird]\ntype = \"sibling\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sibling")
}

func TestLoadUsers(t *testing.T) {
	path := writeFile(t, "users.yaml", `
users:
  5b10ac8d82e05b22cc7d4ef5: {id: 4, login: alice}
  Bob@Example.com: {id: 5, login: bob}
`)
	users, err := LoadUsers(path)
	require.NoError(t, err)

	u, ok := users.MapIdentity(&types.Account{AccountID: "5b10ac8d82e05b22cc7d4ef5"})
	require.True(t, ok)
	assert.Equal(t, types.User{ID: 4, Login: "alice"}, u)

	u, ok = users.MapIdentity(&types.Account{AccountID: "unmapped", Email: "bob@example.com"})
	require.True(t, ok)
	assert.Equal(t, "bob", u.Login)

	_, ok = users.MapIdentity(&types.Account{AccountID: "nobody"})
	assert.False(t, ok)
	_, ok = users.MapIdentity(nil)
	assert.False(t, ok)
}

func TestLoadUsersRequiresIDs(t *testing.T) {
	_, err := LoadUsers(writeFile(t, "users.yaml", "users:\n  acc: {login: ghost}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no id")
}

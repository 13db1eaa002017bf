package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the loader reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, envs := range envBindings {
		for _, env := range envs {
			t.Setenv(env, "")
			require.NoError(t, os.Unsetenv(env))
		}
	}
}

// loadFromEnv builds the configuration from the environment only.
func loadFromEnv(t *testing.T) (*Config, error) {
	t.Helper()
	v, err := NewViper("")
	require.NoError(t, err)
	return Load(v)
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	config, err := loadFromEnv(t)
	require.NoError(t, err)

	assert.Equal(t, DefaultPageSize, config.Search.PageSize)
	assert.Equal(t, "topic", config.Get.KeyProperty)
	assert.Equal(t, "payload", config.Get.BodyProperty)
	assert.Empty(t, config.Search.JQL)
	assert.False(t, config.Jira.InsecureSkipVerify)
	assert.Zero(t, config.Jira.Timeout)
	assert.Equal(t, "info", config.Log.Level)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("JIRA_URL", "https://jira.example.com/rest/api/2/")
	t.Setenv("JIRA_USERNAME", "bot")
	t.Setenv("JIRA_PASSWORD", "hunter22")
	t.Setenv("JIRA_PAGE_SIZE", "50")
	t.Setenv("JIRA_JQL", "project = TEST")
	t.Setenv("JIRA_INSECURE", "true")
	t.Setenv("JIRA_HTTP_TIMEOUT", "45s")
	t.Setenv("JIRA_GET_KEY_PROPERTY", "issueKey")
	t.Setenv("METRICS_ADDR", ":9090")

	config, err := loadFromEnv(t)
	require.NoError(t, err)

	assert.Equal(t, "https://jira.example.com/rest/api/2/", config.Jira.URL)
	assert.Equal(t, "bot", config.Jira.Username)
	assert.Equal(t, "hunter22", config.Jira.Password)
	assert.Equal(t, 50, config.Search.PageSize)
	assert.Equal(t, "project = TEST", config.Search.JQL)
	assert.True(t, config.Jira.InsecureSkipVerify)
	assert.Equal(t, 45*time.Second, config.Jira.Timeout)
	assert.Equal(t, "issueKey", config.Get.KeyProperty)
	assert.Equal(t, "payload", config.Get.BodyProperty)
	assert.Equal(t, ":9090", config.Metrics.Addr)
}

func TestPasswordFallsBackToToken(t *testing.T) {
	clearEnv(t)
	t.Setenv("JIRA_TOKEN", "api-token")

	config, err := loadFromEnv(t)
	require.NoError(t, err)
	assert.Equal(t, "api-token", config.Jira.Password)

	t.Setenv("JIRA_PASSWORD", "explicit")
	config, err = loadFromEnv(t)
	require.NoError(t, err)
	assert.Equal(t, "explicit", config.Jira.Password)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "jiraflow.yaml")
	content := `
jira:
  url: https://file.example.com/rest/api/2/
  username: file-user
search:
  page_size: 25
  jql: assignee = currentUser()
get:
  body_property: issue
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v, err := NewViper(path)
	require.NoError(t, err)
	config, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com/rest/api/2/", config.Jira.URL)
	assert.Equal(t, "file-user", config.Jira.Username)
	assert.Equal(t, 25, config.Search.PageSize)
	assert.Equal(t, "assignee = currentUser()", config.Search.JQL)
	assert.Equal(t, "issue", config.Get.BodyProperty)
	assert.Equal(t, "topic", config.Get.KeyProperty)

	// Environment beats the file.
	t.Setenv("JIRA_PAGE_SIZE", "10")
	config, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, 10, config.Search.PageSize)
}

func TestNewViperMissingFile(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "zero page size", env: map[string]string{"JIRA_PAGE_SIZE": "0"}},
		{name: "negative page size", env: map[string]string{"JIRA_PAGE_SIZE": "-5"}},
		{name: "negative timeout", env: map[string]string{"JIRA_HTTP_TIMEOUT": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			config, err := loadFromEnv(t)
			assert.Error(t, err)
			assert.Nil(t, config)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("JIRA_USERNAME=from-dotenv\nJIRA_URL=https://dotenv/\n"), 0o600))
	t.Setenv("JIRA_URL", "https://already-set/")

	require.NoError(t, LoadDotEnv(path))
	t.Cleanup(func() { os.Unsetenv("JIRA_USERNAME") })

	assert.Equal(t, "from-dotenv", os.Getenv("JIRA_USERNAME"))
	assert.Equal(t, "https://already-set/", os.Getenv("JIRA_URL"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env")))
}

func TestValidateJiraConfig(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		username string
		password string
		wantErr  string
	}{
		{
			name:     "All fields present",
			url:      "https://jira.example.com",
			username: "test-user",
			password: "test-password",
		},
		{
			name:     "Missing URL",
			username: "test-user",
			password: "test-password",
			wantErr:  "JIRA_URL",
		},
		{
			name:     "Missing username",
			url:      "https://jira.example.com",
			password: "test-password",
			wantErr:  "JIRA_USERNAME",
		},
		{
			name:     "Missing password",
			url:      "https://jira.example.com",
			username: "test-user",
			wantErr:  "JIRA_PASSWORD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{
				Jira: JiraConfig{
					URL:      tt.url,
					Username: tt.username,
					Password: tt.password,
				},
			}

			err := ValidateJiraConfig(config)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

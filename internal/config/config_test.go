package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  port: 38472
relevance:
  job_titles: ["Backend Engineer", "Go Developer"]
  fail_closed: true
sources:
  - name: linkedin
    url: https://www.linkedin.com/jobs/search?keywords=go
    enabled: true
email:
  enabled: true
  imap_host: imap.gmail.com
  imap_port: 993
  username: me@example.com
telegram:
  enabled: true
  chat_id: 123456
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 38472, cfg.App.Port)
	assert.True(t, cfg.Relevance.FailClosed)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "linkedin", cfg.Sources[0].Name)
	assert.Equal(t, int64(123456), cfg.Telegram.ChatID)
}

func TestNormalizeAppliesDefaults(t *testing.T) {
	var cfg Config
	cfg.Relevance.JobTitles = []string{" Go Developer ", "", "go developer", "SRE"}

	out, res := NormalizeAndValidate(cfg)

	assert.Equal(t, []string{"Go Developer", "SRE"}, out.Relevance.JobTitles)
	assert.Equal(t, 38472, out.App.Port)
	assert.Equal(t, "gpt-4o-mini", out.LLM.Model)
	assert.Equal(t, 50, out.Email.MaxMessages)
	assert.Equal(t, 6*60*60, out.Polling.DiscoverSeconds)
	assert.Equal(t, 15*60, out.Polling.ReplySeconds)
	assert.True(t, res.OK())
	assert.NotEmpty(t, res.Warnings, "no sources enabled should warn")
}

func TestValidateEnabledSourceNeedsURL(t *testing.T) {
	var cfg Config
	cfg.Sources = []Source{{Name: "linkedin", Enabled: true}}

	_, res := NormalizeAndValidate(cfg)
	assert.False(t, res.OK())
	assert.Contains(t, res.Errors[0], "linkedin")
}

func TestValidateEmailRequiresIMAPSettings(t *testing.T) {
	var cfg Config
	cfg.Email.Enabled = true

	_, res := NormalizeAndValidate(cfg)
	require.False(t, res.OK())
	assert.Len(t, res.Errors, 3) // host, port, username
}

func TestValidateEmailDefaultsMailbox(t *testing.T) {
	var cfg Config
	cfg.Email.Enabled = true
	cfg.Email.IMAPHost = "imap.gmail.com"
	cfg.Email.IMAPPort = 993
	cfg.Email.Username = "me@example.com"

	out, res := NormalizeAndValidate(cfg)
	assert.True(t, res.OK())
	assert.Equal(t, "INBOX", out.Email.Mailbox)
}

func TestValidateSubmitRequiresSMTPSettings(t *testing.T) {
	var cfg Config
	cfg.Submit.Enabled = true
	cfg.Submit.SMTPHost = "smtp.gmail.com"
	cfg.Submit.SMTPPort = 465
	cfg.Submit.From = "me@example.com"

	_, res := NormalizeAndValidate(cfg)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "submit.to")
}

func TestValidateTelegramRequiresChatID(t *testing.T) {
	var cfg Config
	cfg.Telegram.Enabled = true

	_, res := NormalizeAndValidate(cfg)
	require.False(t, res.OK())
	assert.Contains(t, res.Errors[0], "telegram.chat_id")
}

func TestEnsureUserConfigCopiesDefaultOnce(t *testing.T) {
	dataDir := t.TempDir()
	def := filepath.Join(t.TempDir(), "default.yml")
	require.NoError(t, os.WriteFile(def, []byte("app:\n  port: 1\n"), 0o644))

	path, err := EnsureUserConfig(dataDir, def)
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "port: 1")

	// user edits survive a second bootstrap
	require.NoError(t, os.WriteFile(path, []byte("app:\n  port: 2\n"), 0o644))
	again, err := EnsureUserConfig(dataDir, def)
	require.NoError(t, err)
	assert.Equal(t, path, again)
	b, err = os.ReadFile(again)
	require.NoError(t, err)
	assert.Contains(t, string(b), "port: 2")
}

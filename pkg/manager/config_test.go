package manager

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/letsexpose/letsexpose/pkg/common"
)

const validConfig = `
letsencrypt:
  email: admin@example.com
  staging: true
hosts:
  example.com:
    "443":
      - location: /
        backend: http://127.0.0.1:8080
      - location: /private/
        backend: http://127.0.0.1:8081
        http_auth:
          realm: Private
          username: alice
          password: s3cret
    "8443":
      - location: /
        backend: https://10.0.0.2
  other.example.org:
    "443":
      - location: /
        backend: http://127.0.0.1:9000
`

func TestParseConfig_Valid(t *testing.T) {
	cfg, err := ParseConfig([]byte(validConfig))
	require.NoError(t, err)

	assert.Equal(t, "admin@example.com", cfg.LetsEncrypt.Email)
	assert.True(t, cfg.LetsEncrypt.Staging)
	require.Len(t, cfg.Hosts, 2)

	host := cfg.Hosts[0]
	assert.Equal(t, "example.com", host.Name)
	require.Len(t, host.Ports, 2)
	assert.Equal(t, 443, host.Ports[0].Number)
	assert.Equal(t, 8443, host.Ports[1].Number)

	locs := host.Ports[0].Locations
	require.Len(t, locs, 2)
	assert.Equal(t, "/", locs[0].Path)
	assert.Nil(t, locs[0].HTTPAuth)
	assert.Equal(t, &HTTPAuth{Realm: "Private", Username: "alice", Password: "s3cret"}, locs[1].HTTPAuth)

	assert.Equal(t, []string{"example.com", "other.example.org"}, cfg.HostNames())
}

func TestParseConfig_StagingDefaultsToFalse(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
letsencrypt:
  email: admin@example.com
hosts:
  example.com:
    "443":
      - location: /
        backend: http://127.0.0.1:8080
`))
	require.NoError(t, err)
	assert.False(t, cfg.LetsEncrypt.Staging)
}

func TestParseConfig_StagingBooleans(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"false", false},
		{"True", true},
		{"yes", true},
		{"Yes", true},
		{"YES", true},
		{"no", false},
		{"on", true},
		{"Off", false},
		{"y", true},
		{"N", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			doc := "letsencrypt: {email: a@b.c, staging: " + tt.value + "}\nhosts:\n  example.com:\n    \"443\":\n      - {location: /, backend: 'http://x'}\n"
			cfg, err := ParseConfig([]byte(doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.LetsEncrypt.Staging)
		})
	}
}

func TestParseConfig_PortKeys(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want int
	}{
		{"quoted", `"443"`, 443},
		{"unquoted int", `8080`, 8080},
		{"whitespace", `" 81 "`, 81},
		{"signed", `"+82"`, 82},
		{"negative parses", `"-1"`, -1},
		{"float truncates", `4.5`, 4},
		{"negative float truncates", `-2.9`, -2},
		{"bool true", `true`, 1},
		{"yaml 1.1 bool", `yes`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := "letsencrypt: {email: a@b.c}\nhosts:\n  example.com:\n    " + tt.key + ":\n      - {location: /, backend: 'http://x'}\n"
			cfg, err := ParseConfig([]byte(doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Hosts[0].Ports[0].Number)
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		message string
	}{
		{
			name:    "document is not a mapping",
			config:  "- a\n- b\n",
			message: `expected mapping, found "sequence"`,
		},
		{
			name:    "empty document",
			config:  "",
			message: `expected mapping, found "null"`,
		},
		{
			name:    "missing letsencrypt",
			config:  "hosts: {}\n",
			message: `missing key "letsencrypt"`,
		},
		{
			name:    "missing hosts",
			config:  "letsencrypt: {email: a@b.c}\n",
			message: `missing key "hosts"`,
		},
		{
			name:    "superfluous top-level key",
			config:  "letsencrypt: {email: a@b.c}\nhosts: {}\nextra: 1\n",
			message: `superfluous key "extra"`,
		},
		{
			name:    "letsencrypt not a mapping",
			config:  "letsencrypt: nope\nhosts: {}\n",
			message: `letsencrypt: expected mapping, found "string"`,
		},
		{
			name:    "missing email",
			config:  "letsencrypt: {staging: true}\nhosts: {}\n",
			message: `letsencrypt: missing key "email"`,
		},
		{
			name:    "superfluous letsencrypt key",
			config:  "letsencrypt: {email: a@b.c, server: x}\nhosts: {}\n",
			message: `letsencrypt: superfluous key "server"`,
		},
		{
			name:    "staging not a bool",
			config:  "letsencrypt: {email: a@b.c, staging: 'yes'}\nhosts: {}\n",
			message: `letsencrypt.staging: expected bool, got "yes"`,
		},
		{
			name:    "hosts not a mapping",
			config:  "letsencrypt: {email: a@b.c}\nhosts: [a]\n",
			message: `hosts: expected mapping, found "sequence"`,
		},
		{
			name:    "hosts empty",
			config:  "letsencrypt: {email: a@b.c}\nhosts: {}\n",
			message: `hosts: expected at least one host`,
		},
		{
			name:    "host ports not a mapping",
			config:  "letsencrypt: {email: a@b.c}\nhosts:\n  example.com: [1]\n",
			message: `hosts.example.com: expected mapping, found "sequence"`,
		},
		{
			name:    "port not a number",
			config:  "letsencrypt: {email: a@b.c}\nhosts:\n  example.com:\n    https: []\n",
			message: `hosts.example.com: expected port number as string, got "https"`,
		},
		{
			name:    "port is an infinite float",
			config:  "letsencrypt: {email: a@b.c}\nhosts:\n  example.com:\n    .inf: []\n",
			message: `hosts.example.com: expected port number as string, got .inf`,
		},
		{
			name:    "port is a quoted bool",
			config:  "letsencrypt: {email: a@b.c}\nhosts:\n  example.com:\n    'yes': []\n",
			message: `hosts.example.com: expected port number as string, got "yes"`,
		},
		{
			name:    "staging quoted on",
			config:  "letsencrypt: {email: a@b.c, staging: \"on\"}\nhosts: {}\n",
			message: `letsencrypt.staging: expected bool, got "on"`,
		},
		{
			name:    "staging explicit string tag",
			config:  "letsencrypt: {email: a@b.c, staging: !!str yes}\nhosts: {}\n",
			message: `letsencrypt.staging: expected bool, got "yes"`,
		},
		{
			name:    "staging is a number",
			config:  "letsencrypt: {email: a@b.c, staging: 1}\nhosts: {}\n",
			message: `letsencrypt.staging: expected bool, got 1`,
		},
		{
			name:    "locations not a sequence",
			config:  "letsencrypt: {email: a@b.c}\nhosts:\n  example.com:\n    \"443\": {location: /}\n",
			message: `hosts.example.com.443: expected sequence, got mapping`,
		},
		{
			name:    "location entry not a mapping",
			config:  "letsencrypt: {email: a@b.c}\nhosts:\n  example.com:\n    \"443\": [/]\n",
			message: `hosts.example.com.443[0]: expected mapping, found "string"`,
		},
		{
			name:    "missing backend",
			config:  "letsencrypt: {email: a@b.c}\nhosts:\n  example.com:\n    \"443\":\n      - location: /\n",
			message: `hosts.example.com.443[0]: missing key "backend"`,
		},
		{
			name:    "superfluous location key",
			config:  "letsencrypt: {email: a@b.c}\nhosts:\n  example.com:\n    \"443\":\n      - {location: /, backend: 'http://x', root: /srv}\n",
			message: `hosts.example.com.443[0]: superfluous key "root"`,
		},
		{
			name:    "location not a string",
			config:  "letsencrypt: {email: a@b.c}\nhosts:\n  example.com:\n    \"443\":\n      - {location: 42, backend: 'http://x'}\n",
			message: `hosts.example.com.443[0].location: expected string, got 42`,
		},
		{
			name:    "http_auth missing password",
			config:  "letsencrypt: {email: a@b.c}\nhosts:\n  example.com:\n    \"443\":\n      - {location: /, backend: 'http://x', http_auth: {realm: r, username: u}}\n",
			message: `hosts.example.com.443[0].http_auth: missing key "password"`,
		},
		{
			name:    "http_auth superfluous key",
			config:  "letsencrypt: {email: a@b.c}\nhosts:\n  example.com:\n    \"443\":\n      - {location: /, backend: 'http://x', http_auth: {realm: r, username: u, password: p, hash: md5}}\n",
			message: `hosts.example.com.443[0].http_auth: superfluous key "hash"`,
		},
		{
			name:    "duplicate host",
			config:  "letsencrypt: {email: a@b.c}\nhosts:\n  a.com: {}\n  a.com: {}\n",
			message: `hosts: duplicate key "a.com"`,
		},
		{
			name:    "missing key reported before superfluous key",
			config:  "letsencrypt: {bogus: 1}\nhosts: {}\n",
			message: `letsencrypt: missing key "email"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.config))
			require.Error(t, err)

			appErr := common.GetApplicationError(err)
			require.NotNil(t, appErr, "expected an ApplicationError, got %T", err)
			assert.Equal(t, common.ErrorTypeValidation, appErr.Type)
			assert.Equal(t, tt.message, appErr.Message)
			assert.Equal(t, common.DefaultExitCode, common.ExitCode(err))
		})
	}
}

func TestValidate_ReportsLine(t *testing.T) {
	_, err := ParseConfig([]byte("letsencrypt:\n  email: a@b.c\nhosts:\n  example.com:\n    nope: []\n"))
	require.Error(t, err)

	appErr := common.GetApplicationError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 5, appErr.Context["line"])
	assert.Equal(t, "hosts.example.com", appErr.Context["path"])
	assert.Empty(t, appErr.Resource)
	assert.Equal(t, 1, strings.Count(appErr.Error(), "hosts.example.com"), appErr.Error())
}

// captureWarnings routes DefaultLogger into a buffer for the test.
func captureWarnings(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	saved := DefaultLogger
	DefaultLogger = NewColorfulLogger(&buf, LogLevelWarn, false, false)
	t.Cleanup(func() { DefaultLogger = saved })
	return &buf
}

func TestParseConfig_LintWarnsOnly(t *testing.T) {
	tests := []struct {
		name   string
		config string
		want   string
	}{
		{
			name:   "email without at sign",
			config: "letsencrypt: {email: admin}\nhosts:\n  example.com:\n    \"443\": [{location: /, backend: 'http://x'}]\n",
			want:   "WARN letsencrypt.email: ",
		},
		{
			name:   "backend without scheme",
			config: "letsencrypt: {email: a@b.c}\nhosts:\n  example.com:\n    \"443\": [{location: /, backend: '127.0.0.1:8080'}]\n",
			want:   "WARN hosts.example.com.443[0].backend: ",
		},
		{
			name:   "nginx variable backend",
			config: "letsencrypt: {email: a@b.c}\nhosts:\n  example.com:\n    \"443\": [{location: /, backend: $upstream}]\n",
			want:   "WARN hosts.example.com.443[0].backend: ",
		},
		{
			name:   "empty location",
			config: "letsencrypt: {email: a@b.c}\nhosts:\n  example.com:\n    \"443\": [{location: '', backend: 'http://x'}]\n",
			want:   "WARN hosts.example.com.443[0].location: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := captureWarnings(t)

			cfg, err := ParseConfig([]byte(tt.config))
			require.NoError(t, err)
			require.NotNil(t, cfg)
			assert.Contains(t, warnings.String(), tt.want)
		})
	}
}

func TestLintConfig_NamesOffendingLocation(t *testing.T) {
	cfg, err := Validate(mustParseNode(t, `
letsencrypt: {email: a@b.c}
hosts:
  good.example.com:
    "443": [{location: /, backend: 'http://ok'}]
  example.com:
    "443": [{location: /, backend: 'http://ok'}]
    "8443":
      - {location: /, backend: 'http://ok'}
      - {location: /api, backend: 'unix:/run/app.sock'}
`))
	require.NoError(t, err)

	warnings, err := LintConfig(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.True(t, strings.HasPrefix(warnings[0], "hosts.example.com.8443[1].backend: "), warnings[0])
}

func TestLintConfig_Clean(t *testing.T) {
	cfg, err := Validate(mustParseNode(t, validConfig))
	require.NoError(t, err)

	warnings, err := LintConfig(cfg)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func mustParseNode(t *testing.T, doc string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(doc), &node))
	return &node
}

func TestParseConfig_PlaceholderEmailWarns(t *testing.T) {
	warnings := captureWarnings(t)

	var buf bytes.Buffer
	require.NoError(t, GenerateDefaultConfig(&buf))

	cfg, err := ParseConfig(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, PlaceholderEmail, cfg.LetsEncrypt.Email)
	assert.Contains(t, warnings.String(), "placeholder")
}

func TestGenerateDefaultConfig_ValidOnceEdited(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, GenerateDefaultConfig(&buf))

	edited := []byte(strings.ReplaceAll(buf.String(), PlaceholderEmail, "ops@example.net"))
	cfg, err := ParseConfig(edited)
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com"}, cfg.HostNames())
}

func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(validConfig), 0600))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Len(t, cfg.Hosts, 2)

	_, err = LoadConfig(filepath.Join(tempDir, "missing.yaml"))
	require.Error(t, err)
	appErr := common.GetApplicationError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, common.ErrorTypeStorage, appErr.Type)
	assert.Contains(t, appErr.Diagnostic(), "no such file or directory")
	assert.Contains(t, appErr.Diagnostic(), "missing.yaml")
}

func TestParseConfig_InvalidYAML(t *testing.T) {
	_, err := ParseConfig([]byte("letsencrypt: [unclosed\n"))
	require.Error(t, err)
	appErr := common.GetApplicationError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, common.ErrorTypeValidation, appErr.Type)
}

package nginx

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsexpose/letsexpose/pkg/common"
	"github.com/letsexpose/letsexpose/pkg/manager"
)

// fakeCerts reports certificate presence from a fixed set of hosts.
type fakeCerts map[string]bool

func (f fakeCerts) Exists(host string) bool { return f[host] }

func testSettings(t *testing.T, mode manager.OutputMode) manager.Settings {
	t.Helper()
	dir := t.TempDir()
	htpasswd := filepath.Join(dir, "htpasswd")
	require.NoError(t, os.MkdirAll(htpasswd, 0750))

	return manager.Settings{
		LiveDir:     "/etc/letsencrypt/live",
		HtpasswdDir: htpasswd,
		NginxConf:   filepath.Join(dir, "letsexpose-hosts.conf"),
		NginxLogDir: "/var/log/nginx",
		SSLInclude:  "/etc/nginx/certbot-ssl.conf",
		DHParam:     "/etc/nginx/certbot-ssl-dhparams.pem",
		OutputMode:  mode,
	}
}

func discardLogger() *manager.Logger {
	return manager.NewLogger(io.Discard, manager.LogLevelDebug)
}

func singleHostConfig(auth *manager.HTTPAuth) *manager.Config {
	return &manager.Config{
		LetsEncrypt: manager.LetsEncryptSettings{Email: "a@ex.com"},
		Hosts: []manager.Host{{
			Name: "ex.com",
			Ports: []manager.Port{{
				Number:    443,
				Locations: []manager.Location{{Path: "/", Backend: "http://127.0.0.1:8080", HTTPAuth: auth}},
			}},
		}},
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestUpdate_SingleHostWithCertificate(t *testing.T) {
	settings := testSettings(t, manager.OutputModeLastWins)
	u := NewUpdater(settings, fakeCerts{"ex.com": true}, discardLogger())

	report, err := u.Update(singleHostConfig(nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"ex.com"}, report.Rendered)
	assert.Empty(t, report.CredentialFiles)

	out := readFile(t, settings.NginxConf)
	assert.True(t, strings.HasPrefix(out, UpgradeMap))
	assert.Contains(t, out, "listen 443 ssl;")
	assert.Contains(t, out, "server_name ex.com;")
	assert.Contains(t, out, "/etc/letsencrypt/live/ex.com/fullchain.pem")
	assert.Contains(t, out, "/etc/letsencrypt/live/ex.com/privkey.pem")
	assert.NotContains(t, out, "auth_basic")
}

func TestUpdate_HostWithoutCertificateIsSkipped(t *testing.T) {
	settings := testSettings(t, manager.OutputModeLastWins)
	u := NewUpdater(settings, fakeCerts{}, discardLogger())

	report, err := u.Update(singleHostConfig(&manager.HTTPAuth{Realm: "r", Username: "u", Password: "p"}))
	require.NoError(t, err)

	assert.Empty(t, report.Rendered)
	assert.Equal(t, []string{"ex.com"}, report.Skipped)
	assert.Zero(t, report.ConfigWrites)

	_, err = os.Stat(settings.NginxConf)
	assert.True(t, os.IsNotExist(err), "config file must not be written")

	entries, err := os.ReadDir(settings.HtpasswdDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no credential file may be written")
}

func TestUpdate_HTTPAuthWritesCredentialFile(t *testing.T) {
	settings := testSettings(t, manager.OutputModeLastWins)
	u := NewUpdater(settings, fakeCerts{"ex.com": true}, discardLogger())

	report, err := u.Update(singleHostConfig(&manager.HTTPAuth{Realm: `My "realm"`, Username: "alice", Password: "s3cret"}))
	require.NoError(t, err)

	credPath := filepath.Join(settings.HtpasswdDir, "ex.com.443._")
	assert.Equal(t, []string{credPath}, report.CredentialFiles)
	assert.Equal(t, "alice:s3cret", readFile(t, credPath))

	out := readFile(t, settings.NginxConf)
	assert.Contains(t, out, `auth_basic "My \"realm\"";`)
	assert.Contains(t, out, "auth_basic_user_file "+QuoteString(credPath)+";")
}

func multiHostConfig() *manager.Config {
	loc := func(backend string) []manager.Location {
		return []manager.Location{{Path: "/", Backend: backend}}
	}
	return &manager.Config{
		LetsEncrypt: manager.LetsEncryptSettings{Email: "a@ex.com"},
		Hosts: []manager.Host{
			{Name: "a.com", Ports: []manager.Port{
				{Number: 443, Locations: loc("http://a443")},
				{Number: 8443, Locations: loc("http://a8443")},
			}},
			{Name: "b.com", Ports: []manager.Port{
				{Number: 443, Locations: loc("http://b443")},
			}},
			{Name: "c.com", Ports: []manager.Port{
				{Number: 443, Locations: loc("http://c443")},
			}},
		},
	}
}

func TestUpdate_LastWins(t *testing.T) {
	settings := testSettings(t, manager.OutputModeLastWins)
	u := NewUpdater(settings, fakeCerts{"a.com": true, "b.com": true}, discardLogger())

	report, err := u.Update(multiHostConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{"a.com", "b.com"}, report.Rendered)
	assert.Equal(t, []string{"c.com"}, report.Skipped)
	assert.Equal(t, 2, report.ConfigWrites)

	out := readFile(t, settings.NginxConf)
	// only the last host with a certificate survives in the file
	assert.Contains(t, out, "server_name b.com;")
	assert.NotContains(t, out, "a.com")
	assert.NotContains(t, out, "c.com")
	assert.Equal(t, 1, strings.Count(out, "\nserver {\n"))
}

func TestUpdate_LastWinsRendersOnlyLastPort(t *testing.T) {
	settings := testSettings(t, manager.OutputModeLastWins)
	u := NewUpdater(settings, fakeCerts{"a.com": true}, discardLogger())

	_, err := u.Update(multiHostConfig())
	require.NoError(t, err)

	out := readFile(t, settings.NginxConf)
	assert.Contains(t, out, "listen 8443 ssl;")
	assert.Contains(t, out, "proxy_pass          http://a8443;")
	assert.NotContains(t, out, "listen 443 ssl;")
	assert.NotContains(t, out, "http://a443")
}

func TestUpdate_Accumulate(t *testing.T) {
	settings := testSettings(t, manager.OutputModeAccumulate)
	u := NewUpdater(settings, fakeCerts{"a.com": true, "b.com": true}, discardLogger())

	report, err := u.Update(multiHostConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, report.ConfigWrites)

	out := readFile(t, settings.NginxConf)
	assert.Equal(t, 1, strings.Count(out, "map $http_upgrade"))
	assert.Equal(t, 3, strings.Count(out, "\nserver {\n"))
	assert.Contains(t, out, "http://a443")
	assert.Contains(t, out, "http://a8443")
	assert.Contains(t, out, "http://b443")
	assert.NotContains(t, out, "c.com")
	assert.Less(t, strings.Index(out, "http://a443"), strings.Index(out, "http://b443"))
}

func TestUpdate_HostWithoutPortsIsSkipped(t *testing.T) {
	settings := testSettings(t, manager.OutputModeLastWins)
	u := NewUpdater(settings, fakeCerts{"a.com": true}, discardLogger())

	report, err := u.Update(&manager.Config{Hosts: []manager.Host{{Name: "a.com"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.com"}, report.Skipped)
	assert.Zero(t, report.ConfigWrites)
}

func TestUpdate_OverwritesPreviousRun(t *testing.T) {
	settings := testSettings(t, manager.OutputModeLastWins)
	require.NoError(t, os.WriteFile(settings.NginxConf, []byte("stale content from an older run\n"), 0644))

	u := NewUpdater(settings, fakeCerts{"ex.com": true}, discardLogger())
	_, err := u.Update(singleHostConfig(nil))
	require.NoError(t, err)

	assert.NotContains(t, readFile(t, settings.NginxConf), "stale content")
}

func TestUpdate_CredentialDirMissing(t *testing.T) {
	settings := testSettings(t, manager.OutputModeLastWins)
	settings.HtpasswdDir = filepath.Join(settings.HtpasswdDir, "does-not-exist")

	u := NewUpdater(settings, fakeCerts{"ex.com": true}, discardLogger())
	_, err := u.Update(singleHostConfig(&manager.HTTPAuth{Realm: "r", Username: "u", Password: "p"}))
	require.Error(t, err)

	appErr := common.GetApplicationError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, common.ErrorTypeStorage, appErr.Type)
	assert.Equal(t, common.DefaultExitCode, common.ExitCode(err))
}

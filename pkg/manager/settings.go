package manager

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// OutputMode selects how update-nginx combines server blocks into the
// generated nginx config file.
type OutputMode string

const (
	// OutputModeLastWins rewrites the config file for every host with a
	// certificate, rendering only the host's last port. The file ends up
	// holding the last such host.
	OutputModeLastWins OutputMode = "last-wins"
	// OutputModeAccumulate renders every port of every host with a
	// certificate into one file.
	OutputModeAccumulate OutputMode = "accumulate"
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *OutputMode) UnmarshalText(text []byte) error {
	switch mode := OutputMode(text); mode {
	case OutputModeLastWins, OutputModeAccumulate:
		*m = mode
		return nil
	default:
		return fmt.Errorf("unknown output mode %q (want %q or %q)", text, OutputModeLastWins, OutputModeAccumulate)
	}
}

// SettingsEnvPrefix prefixes every environment variable read by LoadSettings.
const SettingsEnvPrefix = "LETSEXPOSE_"

// Settings holds the file system locations and binaries the tasks use.
// Defaults match a stock certbot + nginx installation.
type Settings struct {
	CertbotBinary   string     `env:"CERTBOT_BINARY" envDefault:"certbot"`
	Webroot         string     `env:"WEBROOT" envDefault:"/var/www/certbot"`
	LiveDir         string     `env:"LETSENCRYPT_LIVE_DIR" envDefault:"/etc/letsencrypt/live"`
	HtpasswdDir     string     `env:"HTPASSWD_DIR" envDefault:"/etc/nginx/htpasswd"`
	NginxConf       string     `env:"NGINX_CONF" envDefault:"/etc/nginx/conf.d/letsexpose-hosts.conf"`
	NginxLogDir     string     `env:"NGINX_LOG_DIR" envDefault:"/var/log/nginx"`
	SSLInclude      string     `env:"NGINX_SSL_INCLUDE" envDefault:"/etc/nginx/certbot-ssl.conf"`
	DHParam         string     `env:"NGINX_DHPARAM" envDefault:"/etc/nginx/certbot-ssl-dhparams.pem"`
	OutputMode      OutputMode `env:"OUTPUT_MODE" envDefault:"last-wins"`
	RenewalWarnDays int        `env:"RENEWAL_WARN_DAYS" envDefault:"30"`
}

// LoadSettings parses Settings from environ, or from the process
// environment when environ is nil.
func LoadSettings(environ map[string]string) (Settings, error) {
	opts := env.Options{
		Prefix:      SettingsEnvPrefix,
		Environment: environ,
	}
	settings, err := env.ParseAsWithOptions[Settings](opts)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	if settings.RenewalWarnDays < 0 {
		settings.RenewalWarnDays = DefaultRenewalWarnDays
	}
	return settings, nil
}

// Package certbot builds and runs the certbot invocation that requests one
// certificate for every configured host, and answers which hosts already
// have certificate material on disk.
package certbot

import (
	"github.com/go-acme/lego/v4/certcrypto"

	"github.com/letsexpose/letsexpose/pkg/manager"
)

// KeySize is the RSA key size requested from certbot.
const KeySize = string(certcrypto.RSA4096)

// BuildCommand returns the certbot argv for cfg. Every host appears once,
// in document order, behind its own -d flag.
func BuildCommand(cfg *manager.Config, settings manager.Settings) []string {
	argv := []string{
		settings.CertbotBinary, "certonly",
		"--webroot", "-w", settings.Webroot,
		"--noninteractive",
		"--no-eff-email",
	}
	if cfg.LetsEncrypt.Staging {
		argv = append(argv, "--staging")
	}
	argv = append(argv, "--email", cfg.LetsEncrypt.Email)

	for _, name := range cfg.HostNames() {
		argv = append(argv, "-d", name)
	}

	return append(argv,
		"--rsa-key-size", KeySize,
		"--agree-tos",
		"--force-renewal",
	)
}

package nginx

import (
	"os"

	"github.com/letsexpose/letsexpose/pkg/common"
	"github.com/letsexpose/letsexpose/pkg/manager"
)

// UpdateReport summarizes one Update run.
type UpdateReport struct {
	// Rendered lists the hosts whose server blocks were written
	Rendered []string
	// Skipped lists hosts without certificate material or without ports
	Skipped []string
	// CredentialFiles lists every htpasswd file written
	CredentialFiles []string
	// ConfigWrites counts how often the nginx config file was rewritten
	ConfigWrites int
}

// Updater writes the nginx config file and credential files for the hosts
// that already have a certificate.
type Updater struct {
	settings manager.Settings
	certs    common.CertificateChecker
	logger   common.LoggerInterface
}

// NewUpdater creates an Updater. certs decides which hosts are activated.
func NewUpdater(settings manager.Settings, certs common.CertificateChecker, logger common.LoggerInterface) *Updater {
	return &Updater{settings: settings, certs: certs, logger: logger}
}

// Update renders cfg. Hosts without a certificate are skipped silently; their
// routes get activated by a later run once certbot-init has issued one.
//
// In OutputModeLastWins only the last port of each host is rendered and the
// config file is rewritten once per host, so it ends up describing the last
// host with a certificate. OutputModeAccumulate writes every port of every
// such host in a single pass. The config file is left untouched when no host
// has a certificate.
func (u *Updater) Update(cfg *manager.Config) (*UpdateReport, error) {
	report := &UpdateReport{}
	var accumulated []ServerBlock

	for _, host := range cfg.Hosts {
		if !u.certs.Exists(host.Name) {
			u.logger.Debugf("No certificate for %s yet, not activating it", host.Name)
			report.Skipped = append(report.Skipped, host.Name)
			continue
		}
		if len(host.Ports) == 0 {
			u.logger.Warnf("Host %s has no ports configured, skipping", host.Name)
			report.Skipped = append(report.Skipped, host.Name)
			continue
		}

		ports := host.Ports
		if u.settings.OutputMode != manager.OutputModeAccumulate {
			if len(ports) > 1 {
				u.logger.Warnf("Host %s has %d ports; only port %d is rendered in %s mode",
					host.Name, len(ports), ports[len(ports)-1].Number, manager.OutputModeLastWins)
			}
			ports = ports[len(ports)-1:]
		}

		var blocks []ServerBlock
		for _, port := range ports {
			block, files, err := u.serverBlock(host.Name, port)
			report.CredentialFiles = append(report.CredentialFiles, files...)
			if err != nil {
				return report, err
			}
			blocks = append(blocks, block)
		}
		report.Rendered = append(report.Rendered, host.Name)

		if u.settings.OutputMode == manager.OutputModeAccumulate {
			accumulated = append(accumulated, blocks...)
			continue
		}
		if err := u.writeConfig(blocks); err != nil {
			return report, err
		}
		report.ConfigWrites++
	}

	if u.settings.OutputMode == manager.OutputModeAccumulate && len(accumulated) > 0 {
		if err := u.writeConfig(accumulated); err != nil {
			return report, err
		}
		report.ConfigWrites++
	}

	return report, nil
}

// serverBlock resolves the credential files of a port's locations, writing
// them as it goes, and returns the block to render.
func (u *Updater) serverBlock(host string, port manager.Port) (ServerBlock, []string, error) {
	block := ServerBlock{
		Host:  host,
		Port:  port.Number,
		Paths: PathsFromSettings(u.settings),
	}

	var written []string
	for _, loc := range port.Locations {
		lb := LocationBlock{Path: loc.Path, Backend: loc.Backend}
		if loc.HTTPAuth != nil {
			path := CredentialFilePath(u.settings.HtpasswdDir, host, port.Number, loc.Path)
			if err := WriteCredentialFile(path, loc.HTTPAuth); err != nil {
				return block, written, err
			}
			u.logger.Debugf("Wrote credential file %s", path)
			written = append(written, path)
			lb.Auth = &BasicAuth{Realm: loc.HTTPAuth.Realm, UserFile: path}
		}
		block.Locations = append(block.Locations, lb)
	}
	return block, written, nil
}

func (u *Updater) writeConfig(blocks []ServerBlock) error {
	content := RenderFile(blocks)
	if err := os.WriteFile(u.settings.NginxConf, []byte(content), manager.ConfigFilePermissions); err != nil {
		return common.NewStorageError(err, "write nginx config", u.settings.NginxConf)
	}
	u.logger.Infof("Wrote %d server block(s) to %s", len(blocks), u.settings.NginxConf)
	return nil
}

package certbot

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-acme/lego/v4/certcrypto"

	"github.com/letsexpose/letsexpose/pkg/common"
)

// CertificateStore looks up the certificates certbot keeps under its live
// directory, one <host>/ subdirectory per certificate.
type CertificateStore struct {
	LiveDir string
}

// NewCertificateStore creates a store rooted at liveDir.
func NewCertificateStore(liveDir string) *CertificateStore {
	return &CertificateStore{LiveDir: liveDir}
}

// FullChainPath returns the path of the host's certificate chain.
func (s *CertificateStore) FullChainPath(host string) string {
	return filepath.Join(s.LiveDir, host, "fullchain.pem")
}

// Exists reports whether the host's fullchain.pem is present. Its contents
// are not looked at.
func (s *CertificateStore) Exists(host string) bool {
	_, err := os.Stat(s.FullChainPath(host))
	return err == nil
}

// CertificateInfo describes the leaf certificate of a host's chain.
type CertificateInfo struct {
	NotAfter time.Time
	DNSNames []string
}

// Covers reports whether the certificate lists host as a subject
// alternative name.
func (c *CertificateInfo) Covers(host string) bool {
	for _, name := range c.DNSNames {
		if name == host {
			return true
		}
	}
	return false
}

// ExpiresWithin reports whether the certificate expires before now+d.
func (c *CertificateInfo) ExpiresWithin(now time.Time, d time.Duration) bool {
	return c.NotAfter.Sub(now) <= d
}

// Inspect parses the host's fullchain.pem and returns its leaf certificate.
func (s *CertificateStore) Inspect(host string) (*CertificateInfo, error) {
	path := s.FullChainPath(host)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewStorageError(err, "read certificate", path)
	}

	certs, err := certcrypto.ParsePEMBundle(data)
	if err != nil {
		return nil, common.WrapError(err, common.ErrorTypeStorage, "parse certificate",
			fmt.Sprintf("cannot parse certificate of %s", host)).WithResource(path)
	}

	leaf := certs[0]
	return &CertificateInfo{NotAfter: leaf.NotAfter, DNSNames: leaf.DNSNames}, nil
}

// Warnings returns the problems worth reporting about host's certificate:
// an expiry within warnDays days or a chain that does not name the host.
// An unreadable certificate is reported as a warning too.
func (s *CertificateStore) Warnings(host string, now time.Time, warnDays int) []string {
	info, err := s.Inspect(host)
	if err != nil {
		return []string{err.Error()}
	}

	var warnings []string
	threshold := time.Duration(warnDays) * 24 * time.Hour
	if info.ExpiresWithin(now, threshold) {
		left := info.NotAfter.Sub(now)
		if left <= 0 {
			warnings = append(warnings, fmt.Sprintf("certificate for %s expired on %s", host, info.NotAfter.Format(time.DateOnly)))
		} else {
			warnings = append(warnings, fmt.Sprintf("certificate for %s expires in %v (on %s)",
				host, left.Round(time.Hour), info.NotAfter.Format(time.DateOnly)))
		}
	}
	if !info.Covers(host) {
		warnings = append(warnings, fmt.Sprintf("certificate for %s does not cover it (names: %v)", host, info.DNSNames))
	}
	return warnings
}

package nginx

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/letsexpose/letsexpose/pkg/common"
	"github.com/letsexpose/letsexpose/pkg/manager"
)

// sanitizeLocation replaces every character outside [A-Za-z0-9_-] with '_'.
func sanitizeLocation(location string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, location)
}

// CredentialFilePath returns the htpasswd file for a location:
// <dir>/<host>.<port>.<sanitized location>. Locations that only differ in
// replaced characters share a file.
func CredentialFilePath(dir, host string, port int, location string) string {
	name := host + "." + strconv.Itoa(port) + "." + sanitizeLocation(location)
	return filepath.Join(dir, name)
}

// WriteCredentialFile replaces the contents of path with "username:password".
func WriteCredentialFile(path string, auth *manager.HTTPAuth) error {
	content := auth.Username + ":" + auth.Password
	if err := os.WriteFile(path, []byte(content), manager.CredentialFilePermissions); err != nil {
		return common.NewStorageError(err, "write credential file", path)
	}
	return nil
}

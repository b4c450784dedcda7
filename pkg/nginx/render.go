package nginx

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/letsexpose/letsexpose/pkg/manager"
)

// UpgradeMap maps the client's Upgrade header to the Connection header sent
// upstream so websocket locations work. It heads every generated file.
const UpgradeMap = `map $http_upgrade $connection_upgrade {
    default upgrade;
    ''      close;
}
`

// Paths are the file system locations a server block refers to.
type Paths struct {
	LogDir     string
	LiveDir    string
	SSLInclude string
	DHParam    string
}

// PathsFromSettings picks the server block paths out of the runtime settings.
func PathsFromSettings(s manager.Settings) Paths {
	return Paths{
		LogDir:     s.NginxLogDir,
		LiveDir:    s.LiveDir,
		SSLInclude: s.SSLInclude,
		DHParam:    s.DHParam,
	}
}

// BasicAuth holds the unescaped auth_basic directive arguments of a location.
type BasicAuth struct {
	Realm    string
	UserFile string
}

// LocationBlock is one proxied location of a server block.
type LocationBlock struct {
	Path    string
	Backend string
	Auth    *BasicAuth
}

// ServerBlock is everything needed to render one nginx server block.
type ServerBlock struct {
	Host      string
	Port      int
	Locations []LocationBlock
	Paths     Paths
}

// AccessLogPath returns the access log of a host. Ports other than 443 get
// their own file.
func AccessLogPath(logDir, host string, port int) string {
	name := host
	if port != manager.HTTPSPort {
		name = fmt.Sprintf("%s.%d", host, port)
	}
	return filepath.Join(logDir, name+".access.log")
}

// RenderServerBlock renders a TLS server block proxying every location to
// its backend. It has no side effects.
func RenderServerBlock(b ServerBlock) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `
server {
    listen %d ssl;
    server_name %s;

    access_log %s;
`, b.Port, b.Host, AccessLogPath(b.Paths.LogDir, b.Host, b.Port))

	for _, loc := range b.Locations {
		renderLocation(&sb, loc)
	}

	live := filepath.Join(b.Paths.LiveDir, b.Host)
	fmt.Fprintf(&sb, `
    ssl_certificate %s;
    ssl_certificate_key %s;
    include %s;
    ssl_dhparam %s;
}
`, filepath.Join(live, "fullchain.pem"), filepath.Join(live, "privkey.pem"), b.Paths.SSLInclude, b.Paths.DHParam)

	return sb.String()
}

func renderLocation(sb *strings.Builder, loc LocationBlock) {
	fmt.Fprintf(sb, `
    location %s {
      proxy_set_header        Host $host;
      proxy_set_header        X-Real-IP $remote_addr;
      proxy_set_header        X-Forwarded-For $proxy_add_x_forwarded_for;
      proxy_set_header        X-Forwarded-Proto $scheme;

      proxy_pass          %s;
      proxy_read_timeout  90;

      proxy_redirect http:// https://;
      proxy_http_version 1.1;

      proxy_set_header Upgrade $http_upgrade;
      proxy_set_header Connection $connection_upgrade;
`, loc.Path, loc.Backend)

	if loc.Auth != nil {
		fmt.Fprintf(sb, "      auth_basic %s;\n", QuoteString(loc.Auth.Realm))
		fmt.Fprintf(sb, "      auth_basic_user_file %s;\n", QuoteString(loc.Auth.UserFile))
	}
	sb.WriteString("    }\n")
}

// RenderFile renders a complete config file: the upgrade map followed by
// the given server blocks.
func RenderFile(blocks []ServerBlock) string {
	var sb strings.Builder
	sb.WriteString(UpgradeMap)
	for _, b := range blocks {
		sb.WriteString(RenderServerBlock(b))
	}
	return sb.String()
}

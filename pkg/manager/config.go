package manager

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kaptinlin/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/letsexpose/letsexpose/pkg/common"
)

// LetsEncryptSettings holds the certificate authority account settings.
type LetsEncryptSettings struct {
	Email   string `json:"email"`
	Staging bool   `json:"staging"`
}

// HTTPAuth holds the basic-auth credentials protecting a location.
type HTTPAuth struct {
	Realm    string `json:"realm"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Location routes a URI path prefix to a backend URL.
type Location struct {
	Path     string    `json:"location"`
	Backend  string    `json:"backend"`
	HTTPAuth *HTTPAuth `json:"http_auth,omitempty"`
}

// Port is one listening port of a host with its ordered locations.
type Port struct {
	Number    int        `json:"port"`
	Locations []Location `json:"locations"`
}

// Host is a domain name together with its ports, in configuration file order.
type Host struct {
	Name  string `json:"name"`
	Ports []Port `json:"ports"`
}

// Config is the validated configuration file. It is only ever built by
// Validate and is not modified afterwards.
type Config struct {
	LetsEncrypt LetsEncryptSettings `json:"letsencrypt"`
	Hosts       []Host              `json:"hosts"`
}

// HostNames returns every distinct host name, in configuration file order.
func (cfg *Config) HostNames() []string {
	seen := make(map[string]bool, len(cfg.Hosts))
	names := make([]string, 0, len(cfg.Hosts))
	for _, host := range cfg.Hosts {
		if seen[host.Name] {
			continue
		}
		seen[host.Name] = true
		names = append(names, host.Name)
	}
	return names
}

// LoadConfig reads and validates the YAML configuration file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewStorageError(fmt.Errorf("reading config file %s: %w", path, err), "read config file", path)
	}
	return ParseConfig(data)
}

// ParseConfig validates the YAML document in data. Lint findings are
// logged as warnings and never reject the config.
func ParseConfig(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, common.NewValidationError("parse config", fmt.Sprintf("invalid YAML: %v", err))
	}

	cfg, err := Validate(&doc)
	if err != nil {
		return nil, err
	}

	if cfg.LetsEncrypt.Email == PlaceholderEmail {
		DefaultLogger.Warnf("letsencrypt.email: still the template placeholder %q; Let's Encrypt will reject it", PlaceholderEmail)
	}

	warnings, err := LintConfig(cfg)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		DefaultLogger.Warnf("%s", w)
	}

	for _, name := range cfg.HostNames() {
		if !IsValidHostName(name) {
			DefaultLogger.Warnf("Host %q is not a valid DNS name; certbot will most likely refuse it", name)
		}
	}

	return cfg, nil
}

// LintConfig checks value formats of an already validated config against
// LintSchema. Findings are returned as warnings, one per offending value,
// prefixed with its dotted key path. The error is reserved for a broken
// schema.
func LintConfig(cfg *Config) ([]string, error) {
	jsonData, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("converting config to JSON: %w", err)
	}

	var instance interface{}
	if err := json.Unmarshal(jsonData, &instance); err != nil {
		return nil, fmt.Errorf("parsing JSON for validation: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(LintSchema))
	if err != nil {
		return nil, fmt.Errorf("schema compilation error: %w", err)
	}

	result := schema.Validate(instance)
	if result.IsValid() {
		return nil, nil
	}

	var warnings []string
	for _, v := range SchemaViolations(result) {
		warnings = append(warnings, fmt.Sprintf("%s: %s", configPath(cfg, v.Pointer), v.Message))
	}
	return warnings, nil
}

// GenerateDefaultConfig writes a default config template to the provided writer.
func GenerateDefaultConfig(writer io.Writer) error {
	defaultContent := `# Configuration for letsexpose

letsencrypt:
  # Email address for Let's Encrypt registration and expiry notices
  email: "your-email@example.com" # <-- EDIT THIS
  # Use the Let's Encrypt staging environment (untrusted test certificates)
  staging: true

# Every host gets one certificate (certbot-init) and one nginx server block
# per port (update-nginx). Port numbers are written as strings.
hosts:
  example.com:
    "443":
      - location: /
        backend: http://127.0.0.1:8080
      - location: /admin/
        backend: http://127.0.0.1:8081
        # Optional basic auth; the credential file is written to the htpasswd dir
        http_auth:
          realm: "Admin area"
          username: admin
          password: change-me
`
	_, err := writer.Write([]byte(defaultContent))
	if err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

package manager

// Constants for file permissions
const (
	// CredentialFilePermissions defines permissions for htpasswd files (0640)
	CredentialFilePermissions = 0640

	// ConfigFilePermissions defines permissions for the generated nginx config (0644)
	ConfigFilePermissions = 0644

	// DefaultRenewalWarnDays is how close to expiry a certificate has to be before update-nginx warns
	DefaultRenewalWarnDays = 30

	// HTTPSPort is the port whose access log carries no port suffix
	HTTPSPort = 443

	// PlaceholderEmail is the address shipped in the config template
	PlaceholderEmail = "your-email@example.com"
)

// Task names accepted on the command line
const (
	TaskCertbotInit = "certbot-init"
	TaskUpdateNginx = "update-nginx"
)

// Package nginx renders the reverse-proxy configuration and the basic-auth
// credential files it refers to.
package nginx

import "strings"

var quoteReplacer = strings.NewReplacer(
	`\`, `\\`,
	"\t", `\t`,
	"\r", `\r`,
	"\n", `\n`,
	"{", `\{`,
	`"`, `\"`,
)

// QuoteString returns s as a double-quoted nginx string literal. Backslash,
// tab, CR, LF, '{' and '"' are escaped; everything else is copied as is.
func QuoteString(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}

package manager

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/letsexpose/letsexpose/pkg/common"
)

// Validate walks a parsed YAML document and builds the typed Config from it.
// Validation is fail-fast: the first violation aborts with a VALIDATION
// ApplicationError naming the offending key or value. Keys of a mapping are
// checked before any of its values is descended into.
func Validate(root *yaml.Node) (*Config, error) {
	node := root
	if node != nil && node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			node = nil
		} else {
			node = node.Content[0]
		}
	}
	if node != nil && node.Kind == 0 {
		node = nil
	}

	entries, err := mappingEntries(node, "")
	if err != nil {
		return nil, err
	}
	top, err := checkKeys(entries, "", []string{"letsencrypt", "hosts"}, nil)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	if cfg.LetsEncrypt, err = validateLetsEncrypt(top["letsencrypt"]); err != nil {
		return nil, err
	}
	if cfg.Hosts, err = validateHosts(top["hosts"]); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validateLetsEncrypt(node *yaml.Node) (LetsEncryptSettings, error) {
	const path = "letsencrypt"
	var settings LetsEncryptSettings

	entries, err := mappingEntries(node, path)
	if err != nil {
		return settings, err
	}
	keys, err := checkKeys(entries, path, []string{"email"}, []string{"staging"})
	if err != nil {
		return settings, err
	}

	if settings.Email, err = scalarText(keys["email"], path+".email"); err != nil {
		return settings, err
	}

	if staging, ok := keys["staging"]; ok {
		value, ok := parseBool(staging)
		if !ok {
			return settings, typeError(path+".staging", "bool", staging)
		}
		settings.Staging = value
	}

	return settings, nil
}

func validateHosts(node *yaml.Node) ([]Host, error) {
	const path = "hosts"

	entries, err := mappingEntries(node, path)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, validationError(path, node, "expected at least one host")
	}

	hosts := make([]Host, 0, len(entries))
	for _, e := range entries {
		hostPath := path + "." + e.key.Value
		if e.key.Kind != yaml.ScalarNode {
			return nil, validationError(path, e.key, fmt.Sprintf("expected host name as string, got %s", describe(e.key)))
		}

		ports, err := validatePorts(e.value, hostPath)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, Host{Name: e.key.Value, Ports: ports})
	}

	return hosts, nil
}

func validatePorts(node *yaml.Node, path string) ([]Port, error) {
	entries, err := mappingEntries(node, path)
	if err != nil {
		return nil, err
	}

	ports := make([]Port, 0, len(entries))
	for _, e := range entries {
		number, ok := parsePort(e.key)
		if !ok {
			return nil, validationError(path, e.key, fmt.Sprintf("expected port number as string, got %s", describe(e.key)))
		}

		portPath := path + "." + e.key.Value
		locations, err := validateLocations(e.value, portPath)
		if err != nil {
			return nil, err
		}
		ports = append(ports, Port{Number: number, Locations: locations})
	}

	return ports, nil
}

func validateLocations(node *yaml.Node, path string) ([]Location, error) {
	node = resolve(node)
	if node == nil || node.Kind != yaml.SequenceNode {
		return nil, typeError(path, "sequence", node)
	}

	locations := make([]Location, 0, len(node.Content))
	for i, item := range node.Content {
		itemPath := fmt.Sprintf("%s[%d]", path, i)

		entries, err := mappingEntries(item, itemPath)
		if err != nil {
			return nil, err
		}
		keys, err := checkKeys(entries, itemPath, []string{"location", "backend"}, []string{"http_auth"})
		if err != nil {
			return nil, err
		}

		var loc Location
		locNode := resolve(keys["location"])
		if locNode.Kind != yaml.ScalarNode || locNode.ShortTag() != "!!str" {
			return nil, typeError(itemPath+".location", "string", locNode)
		}
		loc.Path = locNode.Value

		if loc.Backend, err = scalarText(keys["backend"], itemPath+".backend"); err != nil {
			return nil, err
		}

		if authNode, ok := keys["http_auth"]; ok {
			if loc.HTTPAuth, err = validateHTTPAuth(authNode, itemPath+".http_auth"); err != nil {
				return nil, err
			}
		}

		locations = append(locations, loc)
	}

	return locations, nil
}

func validateHTTPAuth(node *yaml.Node, path string) (*HTTPAuth, error) {
	entries, err := mappingEntries(node, path)
	if err != nil {
		return nil, err
	}
	keys, err := checkKeys(entries, path, []string{"realm", "username", "password"}, nil)
	if err != nil {
		return nil, err
	}

	auth := &HTTPAuth{}
	if auth.Realm, err = scalarText(keys["realm"], path+".realm"); err != nil {
		return nil, err
	}
	if auth.Username, err = scalarText(keys["username"], path+".username"); err != nil {
		return nil, err
	}
	if auth.Password, err = scalarText(keys["password"], path+".password"); err != nil {
		return nil, err
	}
	return auth, nil
}

type mappingEntry struct {
	key   *yaml.Node
	value *yaml.Node
}

// mappingEntries checks that node is a mapping and returns its pairs in
// document order. Duplicate keys are rejected.
func mappingEntries(node *yaml.Node, path string) ([]mappingEntry, error) {
	node = resolve(node)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil, validationError(path, node, fmt.Sprintf("expected mapping, found %q", kindName(node)))
	}

	seen := make(map[string]bool, len(node.Content)/2)
	entries := make([]mappingEntry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := resolve(node.Content[i])
		if seen[key.Value] {
			return nil, validationError(path, key, fmt.Sprintf("duplicate key %q", key.Value))
		}
		seen[key.Value] = true
		entries = append(entries, mappingEntry{key: key, value: node.Content[i+1]})
	}
	return entries, nil
}

// checkKeys enforces the required and optional key sets of a mapping:
// missing required keys are reported first, then superfluous keys.
func checkKeys(entries []mappingEntry, path string, required, optional []string) (map[string]*yaml.Node, error) {
	byKey := make(map[string]*yaml.Node, len(entries))
	for _, e := range entries {
		byKey[e.key.Value] = e.value
	}

	for _, key := range required {
		if _, ok := byKey[key]; !ok {
			return nil, validationError(path, nil, fmt.Sprintf("missing key %q", key))
		}
	}

	allowed := make(map[string]bool, len(required)+len(optional))
	for _, key := range required {
		allowed[key] = true
	}
	for _, key := range optional {
		allowed[key] = true
	}
	for _, e := range entries {
		if !allowed[e.key.Value] {
			return nil, validationError(path, e.key, fmt.Sprintf("superfluous key %q", e.key.Value))
		}
	}

	return byKey, nil
}

// scalarText returns the literal text of a non-null scalar.
func scalarText(node *yaml.Node, path string) (string, error) {
	node = resolve(node)
	if node == nil || node.Kind != yaml.ScalarNode || node.ShortTag() == "!!null" {
		return "", typeError(path, "string", node)
	}
	return node.Value, nil
}

// yaml11Bools are the plain scalars YAML 1.1 loaders read as booleans on
// top of true/false.
var yaml11Bools = map[string]bool{
	"yes": true, "y": true, "on": true,
	"no": false, "n": false, "off": false,
}

// parseBool accepts !!bool scalars and the unquoted YAML 1.1 spellings
// yes/no/on/off/y/n in any case. Quoted text is never a boolean.
func parseBool(node *yaml.Node) (bool, bool) {
	node = resolve(node)
	if node == nil || node.Kind != yaml.ScalarNode {
		return false, false
	}
	if node.ShortTag() == "!!bool" {
		var b bool
		if err := node.Decode(&b); err != nil {
			return false, false
		}
		return b, true
	}
	if node.Style&(yaml.TaggedStyle|yaml.SingleQuotedStyle|yaml.DoubleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		return false, false
	}
	if node.Tag != "" && node.Tag != "!!str" {
		return false, false
	}
	b, ok := yaml11Bools[strings.ToLower(node.Value)]
	return b, ok
}

// parsePort accepts any key whose text is an integer, whether YAML typed it
// as a string or as an int. Floats are truncated towards zero and booleans
// count as 1 and 0, the way an int() conversion treats them.
func parsePort(key *yaml.Node) (int, bool) {
	if key.Kind != yaml.ScalarNode {
		return 0, false
	}
	switch key.ShortTag() {
	case "!!int":
		var n int
		if err := key.Decode(&n); err != nil {
			return 0, false
		}
		return n, true
	case "!!float":
		var f float64
		if err := key.Decode(&f); err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, false
		}
		if f >= math.MaxInt32 || f <= math.MinInt32 {
			return 0, false
		}
		return int(f), true
	case "!!str":
		n, err := strconv.Atoi(strings.TrimSpace(key.Value))
		if err == nil {
			return n, true
		}
	}
	if b, ok := parseBool(key); ok {
		if b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func resolve(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}

func kindName(node *yaml.Node) string {
	node = resolve(node)
	if node == nil {
		return "null"
	}
	switch node.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		switch tag := node.ShortTag(); tag {
		case "!!str":
			return "string"
		case "!!int":
			return "int"
		case "!!float":
			return "float"
		case "!!bool":
			return "bool"
		case "!!null":
			return "null"
		default:
			return strings.TrimPrefix(tag, "!!")
		}
	}
	return "unknown"
}

// describe renders a node for error messages: quoted text for strings,
// raw text for other scalars, the kind name otherwise.
func describe(node *yaml.Node) string {
	node = resolve(node)
	if node == nil || node.Kind != yaml.ScalarNode {
		return kindName(node)
	}
	if node.ShortTag() == "!!str" {
		return strconv.Quote(node.Value)
	}
	return node.Value
}

func typeError(path, expected string, node *yaml.Node) *common.ApplicationError {
	return validationError(path, node, fmt.Sprintf("expected %s, got %s", expected, describe(node)))
}

func validationError(path string, node *yaml.Node, message string) *common.ApplicationError {
	if path != "" {
		message = path + ": " + message
	}
	err := common.NewValidationError("validate config", message)
	if path != "" {
		_ = err.AddContext("path", path)
	}
	if node != nil && node.Line > 0 {
		_ = err.AddContext("line", node.Line)
	}
	return err
}

package manager

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

// SchemaViolation is one failing keyword of a JSON schema evaluation.
type SchemaViolation struct {
	// Pointer is the absolute JSON pointer of the offending value
	Pointer string
	Message string
}

// SchemaViolations flattens a JSON schema evaluation result into one entry
// per failing keyword, sorted by location.
func SchemaViolations(result *jsonschema.EvaluationResult) []SchemaViolation {
	seen := make(map[SchemaViolation]bool)
	var violations []SchemaViolation
	collectListErrors(result.ToList(), "", seen, &violations)

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].Pointer != violations[j].Pointer {
			return violations[i].Pointer < violations[j].Pointer
		}
		return violations[i].Message < violations[j].Message
	})
	return violations
}

// collectListErrors walks the evaluation list depth first. Instance
// locations of nested results are relative to their parent, so the
// absolute pointer is built up on the way down.
func collectListErrors(list *jsonschema.List, parent string, seen map[SchemaViolation]bool, out *[]SchemaViolation) {
	if list == nil {
		return
	}

	pointer := parent + list.InstanceLocation
	for errorType, errMsg := range list.Errors {
		// container keywords only summarize their children
		if errorType == "properties" || errorType == "items" || errMsg == "" {
			continue
		}
		v := SchemaViolation{Pointer: pointer, Message: errMsg}
		if !seen[v] {
			seen[v] = true
			*out = append(*out, v)
		}
	}

	for i := range list.Details {
		if list.Details[i].Valid {
			continue
		}
		collectListErrors(&list.Details[i], pointer, seen, out)
	}
}

// configPath maps a JSON pointer into the linted config back to the dotted
// key path of the YAML file, e.g. /hosts/0/ports/1/locations/0/backend
// becomes hosts.example.com.8443[0].backend. Unknown shapes fall back to
// the pointer with dots.
func configPath(cfg *Config, pointer string) string {
	segments := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	if pointer == "" {
		return "config"
	}

	index := func(i int, n int) (int, bool) {
		if i >= len(segments) {
			return 0, false
		}
		v, err := strconv.Atoi(segments[i])
		return v, err == nil && v >= 0 && v < n
	}

	if segments[0] != "hosts" || len(segments) < 2 {
		return strings.Join(segments, ".")
	}
	h, ok := index(1, len(cfg.Hosts))
	if !ok {
		return strings.Join(segments, ".")
	}
	host := cfg.Hosts[h]
	path := "hosts." + host.Name
	rest := segments[2:]

	if len(rest) >= 2 && rest[0] == "ports" {
		p, ok := index(3, len(host.Ports))
		if !ok {
			return strings.Join(segments, ".")
		}
		port := host.Ports[p]
		path += "." + strconv.Itoa(port.Number)
		rest = rest[2:]

		if len(rest) >= 2 && rest[0] == "locations" {
			l, ok := index(5, len(port.Locations))
			if !ok {
				return strings.Join(segments, ".")
			}
			path += fmt.Sprintf("[%d]", l)
			rest = rest[2:]
		}
	}

	for _, seg := range rest {
		path += "." + seg
	}
	return path
}

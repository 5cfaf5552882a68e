package permissions

import (
	"fmt"
	"strings"
)

// ParseError reports a permission name missing from the catalog.
type ParseError struct {
	Name string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unknown permission %q", e.Name)
}

// SplitDeclared splits a comma separated declaration into trimmed names.
// Blank input yields an empty slice.
func SplitDeclared(declared string) []string {
	if strings.TrimSpace(declared) == "" {
		return []string{}
	}
	parts := strings.Split(declared, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		names = append(names, strings.TrimSpace(p))
	}
	return names
}

// ParseName resolves a permission by name. Matching is case-insensitive.
func ParseName(name string) (Code, error) {
	trimmed := strings.TrimSpace(name)
	for _, p := range catalog {
		if strings.EqualFold(p.Name, trimmed) {
			return p.Code, nil
		}
	}
	return 0, &ParseError{Name: name}
}

// ParseList resolves every name, failing on the first unknown one.
// Duplicates are collapsed and input order is kept.
func ParseList(names []string) ([]Code, error) {
	codes := make([]Code, 0, len(names))
	seen := make(map[Code]bool, len(names))
	for _, name := range names {
		code, err := ParseName(name)
		if err != nil {
			return nil, err
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	return codes, nil
}

// Names converts codes back to their catalog names.
func Names(codes []Code) []string {
	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = c.String()
	}
	return names
}

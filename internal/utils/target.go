package utils

import (
	"path/filepath"
	"strings"
	"unicode"
)

// OutputTarget returns the default file for the container generated from
// typeName: <dir>/<type_name>_compiled.go
func OutputTarget(dir, typeName string) string {
	return filepath.Join(dir, SnakeCase(typeName)+"_compiled.go")
}

// SnakeCase converts a Go identifier to snake_case, keeping initialisms together
func SnakeCase(s string) string {
	runes := []rune(s)

	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}

			b.WriteRune(unicode.ToLower(r))
			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}

package values

import (
	"fmt"
	"strings"
)

// maxNameLength bounds plugin, repository and server names.
const maxNameLength = 128

// ValidateName checks a plugin, repository or server name.
// A valid name must:
// - Be non-empty after trimming
// - contain only alphanumeric characters, underscores, hyphens and dots
// - NOT contain path separators or parent directory references
// - Be at most 128 characters long
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}

	if len(name) > maxNameLength {
		return fmt.Errorf("name %q too long (max %d chars)", name, maxNameLength)
	}

	// Names end up as file names, keep them inside their directory
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("name %q cannot contain path separators", name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("name %q cannot contain parent directory references", name)
	}

	for _, ch := range name {
		if !isValidNameChar(ch) {
			return fmt.Errorf("invalid name %q: must contain only alphanumeric characters, underscores, hyphens and dots", name)
		}
	}

	return nil
}

func isValidNameChar(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '_' ||
		r == '-' ||
		r == '.'
}

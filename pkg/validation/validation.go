// Package validation checks identifiers that reach the Confluent Cloud APIs
// from configuration or HTTP requests.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	// ErrInvalidInput indicates the input failed validation
	ErrInvalidInput = errors.New("invalid input")

	clusterIDRegex     = regexp.MustCompile(`^lkc-[a-z0-9]{1,32}$`)
	environmentIDRegex = regexp.MustCompile(`^env-[a-z0-9]{1,32}$`)
)

// SanitizeString trims whitespace and strips control characters.
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)

	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// ValidateClusterID accepts Kafka cluster ids such as "lkc-22rwq2".
func ValidateClusterID(id string) error {
	if !clusterIDRegex.MatchString(id) {
		return fmt.Errorf("%w: cluster id %q must look like lkc-xxxxx", ErrInvalidInput, id)
	}
	return nil
}

// ValidateEnvironmentID accepts environment ids such as "env-a1b2c3".
func ValidateEnvironmentID(id string) error {
	if !environmentIDRegex.MatchString(id) {
		return fmt.Errorf("%w: environment id %q must look like env-xxxxx", ErrInvalidInput, id)
	}
	return nil
}

// ValidateClusterIDs checks every id and rejects duplicates.
func ValidateClusterIDs(ids []string) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if err := ValidateClusterID(id); err != nil {
			return err
		}
		if seen[id] {
			return fmt.Errorf("%w: cluster id %q listed twice", ErrInvalidInput, id)
		}
		seen[id] = true
	}
	return nil
}

package config

import (
	"fmt"
	"os"
)

// expandEnv performs ${VAR}/$VAR template expansion over raw service-file
// bytes before they are parsed as YAML, per spec §9. A variable that is not
// set in the process environment is a ConfigError, not a silent empty
// substitution.
func expandEnv(data []byte) ([]byte, error) {
	var missing string
	expanded := os.Expand(string(data), func(name string) string {
		v, ok := os.LookupEnv(name)
		if !ok && missing == "" {
			missing = name
		}
		return v
	})
	if missing != "" {
		return nil, fmt.Errorf("unresolved variable %q", missing)
	}
	return []byte(expanded), nil
}

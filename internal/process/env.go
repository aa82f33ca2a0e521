package process

import (
	"fmt"
	"os"
	"strings"

	"github.com/vireo-systems/warden/internal/spec"
)

// baselineKeys are copied from the supervisor's own environment into the
// child's regardless of policy (spec §4.4); a key unset in the supervisor
// stays unset in the child.
var baselineKeys = []string{"USER", "HOSTNAME", "HOME", "PATH"}

// ComposeEnv builds a child's environment from the supervisor's own
// environment (read via lookup/environ) and policy, applied in order:
// baseline keys first, then keep_env (all of environ), then re_export
// (specific keys), then additional last — each layer overriding the one
// before it on key collision, per spec §4.4.
func ComposeEnv(policy spec.EnvPolicy, environ []string, lookup func(string) (string, bool)) []string {
	out := make(map[string]string, len(environ)+len(policy.Additional))

	for _, key := range baselineKeys {
		if v, ok := lookup(key); ok {
			out[key] = v
		}
	}

	if policy.KeepEnv {
		for _, kv := range environ {
			k, v, ok := splitEnv(kv)
			if ok {
				out[k] = v
			}
		}
	}

	for _, key := range policy.ReExport {
		if v, ok := lookup(key); ok {
			out[key] = v
		}
	}

	for k, v := range policy.Additional {
		out[k] = v
	}

	result := make([]string, 0, len(out))
	for k, v := range out {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

func splitEnv(kv string) (key, value string, ok bool) {
	idx := strings.IndexByte(kv, '=')
	if idx < 0 {
		return "", "", false
	}
	return kv[:idx], kv[idx+1:], true
}

// osLookupEnv adapts os.LookupEnv to ComposeEnv's lookup signature.
func osLookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

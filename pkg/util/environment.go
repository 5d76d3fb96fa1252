package util

import (
	"os"
	"strings"
)

// configPrefix scopes which process environment variables count as
// service configuration.
const configPrefix = "CORDONNX_"

// GetEnvironmentVariables returns the service configuration read from
// the process environment. Only CORDONNX_ prefixed variables are
// included, keyed by their full name.
func GetEnvironmentVariables() map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		pair := strings.SplitN(variable, "=", 2)

		if strings.HasPrefix(pair[0], configPrefix) {
			environmentVariables[pair[0]] = pair[1]
		}
	}

	return environmentVariables
}

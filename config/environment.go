package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appEnvVar              = "APP_ENV"
	environmentDevelopment = "development"
	environmentProduction  = "production"
	environmentStaging     = "staging"
)

const (
	EnvironmentDevelopment = environmentDevelopment
	EnvironmentProduction  = environmentProduction
	EnvironmentStaging     = environmentStaging
)

var environmentAliases = map[string]string{
	"dev":         environmentDevelopment,
	"prod":        environmentProduction,
	"producation": environmentProduction,
	"stag":        environmentStaging,
	"stagging":    environmentStaging,
}

// getAppEnvironment reads the application environment from APP_ENV and
// defaults to development when no value is provided.
func getAppEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv(appEnvVar)))
	if env == "" {
		return environmentDevelopment
	}
	if canonical, ok := environmentAliases[env]; ok {
		return canonical
	}
	return env
}

// ResolvePath selects config/config.<env>.yml next to the default file when
// the caller did not pick an explicit path and such a file exists.
func ResolvePath(path string) string {
	if path != "" && path != DefaultPath {
		return path
	}
	ext := filepath.Ext(DefaultPath)
	envPath := strings.TrimSuffix(DefaultPath, ext) + "." + getAppEnvironment() + ext
	if _, err := os.Stat(envPath); err == nil {
		return envPath
	}
	return DefaultPath
}

// AppEnvironment exposes the normalised APP_ENV value.
func AppEnvironment() string {
	return getAppEnvironment()
}

// IsProductionLike reports whether env should be treated as a live deployment.
// Testnet venues in such environments are almost always a mistake.
func IsProductionLike(env string) bool {
	switch env {
	case environmentProduction, environmentStaging:
		return true
	default:
		return false
	}
}

package config

import (
	"os"
	"time"
)

const (
	appNameVar  = "APP_NAME"
	apiURLVar   = "SYS_API_URL"
	liveURLVar  = "SYS_LIVE_URL"
	credFileVar = "SYS_CREDENTIAL_FILE"
	credPassVar = "SYS_CREDENTIAL_PASSPHRASE"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "ShareYourSales")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

type API struct{}

var _ APIConfig = API{}

func (API) GetAPIBaseURL() string {
	return GetEnv(apiURLVar, "http://localhost:8000")
}

func (API) GetHTTPTimeout() time.Duration {
	return GetDurationEnv("SYS_HTTP_TIMEOUT", 30*time.Second)
}

type Live struct{}

var _ LiveConfig = Live{}

func (Live) GetLiveURL() string {
	return GetEnv(liveURLVar, "ws://localhost:8000/ws")
}

func (Live) GetReconnectInitialInterval() time.Duration {
	return GetDurationEnv("SYS_RECONNECT_INITIAL", time.Second)
}

func (Live) GetReconnectMaxInterval() time.Duration {
	return GetDurationEnv("SYS_RECONNECT_MAX", 30*time.Second)
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetVerifyInterval() time.Duration {
	return GetDurationEnv("SYS_VERIFY_INTERVAL", 5*time.Minute)
}

func (Session) GetCredentialFile() string {
	return GetEnv(credFileVar, "./data/credentials")
}

func (Session) GetCredentialPassphrase() string {
	return GetEnv(credPassVar, "")
}

type Cache struct{}

var _ CacheConfig = Cache{}

func (Cache) GetStaleWindow() time.Duration {
	return GetDurationEnv("SYS_CACHE_STALE", 5*time.Minute)
}

func (Cache) GetGCWindow() time.Duration {
	return GetDurationEnv("SYS_CACHE_GC", 10*time.Minute)
}

func (Cache) GetSweepInterval() time.Duration {
	return GetDurationEnv("SYS_CACHE_SWEEP", time.Minute)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDurationEnv reads a Go duration string (e.g. "30s", "5m") from the
// environment, falling back to the default when unset or unparsable.
func GetDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

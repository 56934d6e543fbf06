package config

import "time"

type Config interface {
	EnvConfig
	APIConfig
	LiveConfig
	SessionConfig
	CacheConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
}

type APIConfig interface {
	GetAPIBaseURL() string
	GetHTTPTimeout() time.Duration
}

type LiveConfig interface {
	GetLiveURL() string
	GetReconnectInitialInterval() time.Duration
	GetReconnectMaxInterval() time.Duration
}

type SessionConfig interface {
	GetVerifyInterval() time.Duration
	GetCredentialFile() string
	GetCredentialPassphrase() string
}

type CacheConfig interface {
	GetStaleWindow() time.Duration
	GetGCWindow() time.Duration
	GetSweepInterval() time.Duration
}

type mainConfig struct {
	EnvVars
	API
	Live
	Session
	Cache
}

func New() Config {
	return mainConfig{}
}

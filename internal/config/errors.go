package config

import "errors"

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrDotEnvInvalid      = errors.New("invalid .env file")
	ErrFieldEmpty         = errors.New("cannot be empty")
	ErrStorageKind        = errors.New("unknown cart_storage")
	ErrWorkers            = errors.New("build_workers must be at least 1")
	ErrAPIBaseURL         = errors.New("api_base_url must be an http(s) URL")
)

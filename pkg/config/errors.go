package config

import "errors"

var (
	// ErrConfigFileNotFound is returned when an explicitly given config file is missing
	ErrConfigFileNotFound = errors.New("configuration file not found")

	// ErrUnsupportedFormat is returned for config files that are neither YAML nor JSON
	ErrUnsupportedFormat = errors.New("unsupported config file format (supported: .yaml, .yml, .json)")

	// ErrInvalidBaseURL is returned when api.base_url is not an absolute http(s) URL
	ErrInvalidBaseURL = errors.New("api base_url must be an absolute http or https URL")

	// ErrInvalidDuration is returned when a duration field cannot be parsed
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrUnsupportedStorageType is returned for an unknown storage.type
	ErrUnsupportedStorageType = errors.New("unsupported storage type (allowed: file, memory, leveldb, redis)")

	// ErrRedisAddrRequired is returned when storage.type is redis without an address
	ErrRedisAddrRequired = errors.New("redis address is required when storage type is redis")

	// ErrEncryptionKeyRequired is returned when encryption is enabled but key is not provided
	ErrEncryptionKeyRequired = errors.New("encryption key is required when encryption is enabled")

	// ErrEncryptionKeyTooShort is returned when encryption key is too short
	ErrEncryptionKeyTooShort = errors.New("encryption key must be at least 32 characters")

	// ErrUnsupportedLanguage is returned for a language other than en, ja or zh
	ErrUnsupportedLanguage = errors.New("unsupported language (allowed: en, ja, zh)")

	// ErrInvalidProfile is returned for profile names that cannot be used in keys and file names
	ErrInvalidProfile = errors.New("profile name may only contain letters, digits, '-' and '_'")
)

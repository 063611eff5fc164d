package apperrors

import "errors"

var (
	ErrRequiredSettingNotFound   = errors.New("required configuration setting not found")
	ErrInvalidValue              = errors.New("invalid configuration value")
	ErrCredentialStoreNotFound   = errors.New("credential store not found")
	ErrSecretNotFound            = errors.New("secret not found in credential store")
	ErrTrustedCAListNotFound     = errors.New("trusted ca list not found")
	ErrLockTimeout               = errors.New("lock acquisition timed out")
	ErrUserNotFound              = errors.New("user not found")
	ErrPluginNotConfigured       = errors.New("plugin not configured")
	ErrScenarioExpectationFailed = errors.New("scenario expectation failed")
)

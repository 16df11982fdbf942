package repository

import "context"

// SettingsRepository is the bot_settings key/value store. Provider secrets
// (yookassa_secret_key, heleket_api_key, cryptobot_token, ...) and panel
// credentials live here, not in the config file.
type SettingsRepository interface {
	// Get returns "" with no error when the key is unset.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
}

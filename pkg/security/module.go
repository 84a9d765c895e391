package security

import (
	"ftc-platform/pkg/config"

	"go.uber.org/fx"
)

var Module = fx.Module("security", fx.Provide(ProvideCipher))

// ProvideCipher refuses to start without SECURITY.ENCRYPTION_SECRET.
func ProvideCipher(cfg *config.Config) (*Cipher, error) {
	return NewCipher(cfg.Security.EncryptionSecret)
}

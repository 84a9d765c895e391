package rediskey

import "fmt"

// Key prefixes shared by the api and worker processes.
const (
	RateLimitPrefix    = "ratelimit"
	TelegramAuthPrefix = "telegram:auth"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildRateLimitKey returns "ratelimit:{scope}:{subject}"
func BuildRateLimitKey(scope, subject string) string {
	return NamespaceKey(RateLimitPrefix, NamespaceKey(scope, subject))
}

// BuildTelegramAuthKey returns "telegram:auth:{userID}"
func BuildTelegramAuthKey(userID string) string {
	return NamespaceKey(TelegramAuthPrefix, userID)
}

package config

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/vault-client-go"
	"github.com/spf13/viper"
	_ "github.com/spf13/viper/remote"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var config = viper.New()

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	NodeID     int64  `mapstructure:"NODE_ID"`
	TLS        struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Otel struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"OTEL"`
	Pyroscope struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"PYROSCOPE"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type              string        `mapstructure:"TYPE"`
		Host              string        `mapstructure:"HOST"`
		Port              string        `mapstructure:"PORT"`
		DBNAME            string        `mapstructure:"DBNAME"`
		User              string        `mapstructure:"USER"`
		Password          string        `mapstructure:"PASSWORD"`
		SSLMode           string        `mapstructure:"SSLMODE"`
		Timezone          string        `mapstructure:"TIMEZONE"`
		ConnectRetries    int           `mapstructure:"CONNECT_RETRIES"`
		ConnectRetryDelay time.Duration `mapstructure:"CONNECT_RETRY_DELAY"`
		// MetricsPort serves gorm pool stats for prometheus when non-zero.
		MetricsPort    uint32 `mapstructure:"METRICS_PORT"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Security struct {
		// EncryptionSecret is mixed into every per-user credential key.
		EncryptionSecret string `mapstructure:"ENCRYPTION_SECRET"`
		AIReviewerEmail  string `mapstructure:"AI_REVIEWER_EMAIL"`
	} `mapstructure:"SECURITY"`
	RateLimit struct {
		// Backend is "redis" or "memory".
		Backend     string        `mapstructure:"BACKEND"`
		MaxAttempts int           `mapstructure:"MAX_ATTEMPTS"`
		Window      time.Duration `mapstructure:"WINDOW"`
	} `mapstructure:"RATE_LIMIT"`
	Telegram struct {
		// APIID and APIHash are used when a user does not bring their own app credentials.
		APIID       int           `mapstructure:"API_ID"`
		APIHash     string        `mapstructure:"API_HASH"`
		BridgeURL   string        `mapstructure:"BRIDGE_URL"`
		BridgeToken string        `mapstructure:"BRIDGE_TOKEN"`
		Timeout     time.Duration `mapstructure:"TIMEOUT"`
	} `mapstructure:"TELEGRAM"`
	Bootstrap struct {
		// APIKey is "keyID.secret"; when set it is stored on startup with APIKeyScopes.
		APIKey       string   `mapstructure:"API_KEY"`
		APIKeyName   string   `mapstructure:"API_KEY_NAME"`
		APIKeyScopes []string `mapstructure:"API_KEY_SCOPES"`
	} `mapstructure:"BOOTSTRAP"`
	Flagsmith struct {
		Addr   string `mapstructure:"ADDR"`
		ApiKey string `mapstructure:"API_KEY"`
	} `mapstructure:"FLAGSMITH"`
	Minio struct {
		Endpoint   string `mapstructure:"ENDPOINT"`
		AccessKey  string `mapstructure:"ACCESS_KEY"`
		SecretKey  string `mapstructure:"SECRET_KEY"`
		Secure     bool   `mapstructure:"SECURE"`
		BucketName string `mapstructure:"BUCKET_NAME"`
	} `mapstructure:"MINIO"`
	Vault struct {
		Enable bool `mapstructure:"ENABLE"`
	} `mapstructure:"VAULT"`
}

const DefaultAIReviewerEmail = "ai-reviewer@system.local"

var Module = fx.Module("config", fx.Provide(LoadConfig))

type Params struct {
	fx.In
	Vault *vault.Client `optional:"true"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "ftc-platform")
	v.SetDefault("NODE_ID", 1)
	v.SetDefault("HTTP_SERVER.ADDR", "8080")
	v.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("DATABASE.TIMEZONE", "UTC")
	v.SetDefault("DATABASE.CONNECT_RETRIES", 5)
	v.SetDefault("DATABASE.CONNECT_RETRY_DELAY", 3*time.Second)
	v.SetDefault("REDIS.ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS.POOL_SIZE", 10)
	v.SetDefault("REDIS.POOL_TIMEOUT", 4*time.Second)
	v.SetDefault("SECURITY.AI_REVIEWER_EMAIL", DefaultAIReviewerEmail)
	v.SetDefault("RATE_LIMIT.BACKEND", "redis")
	v.SetDefault("RATE_LIMIT.MAX_ATTEMPTS", 5)
	v.SetDefault("RATE_LIMIT.WINDOW", time.Hour)
	v.SetDefault("TELEGRAM.TIMEOUT", 30*time.Second)
	v.SetDefault("BOOTSTRAP.API_KEY_NAME", "bootstrap")
	v.SetDefault("BOOTSTRAP.API_KEY_SCOPES", []string{"admin"})
}

func LoadConfig(p Params) *Config {
	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()
	setDefaults(config)

	if err := config.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			zap.L().Error("failed to read config file", zap.Error(err))
			os.Exit(1)
		}
		zap.L().Warn("config.yaml not found, using environment and defaults")
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		zap.L().Error("failed to unmarshal config", zap.Error(err))
		os.Exit(1)
	}

	if p.Vault != nil && cfg.Vault.Enable {
		if err := overlayVaultSecrets(context.Background(), p.Vault, &cfg); err != nil {
			zap.L().Error("failed get secret from vault", zap.Error(err))
			os.Exit(1)
		}
	}

	return &cfg
}

func overlayVaultSecrets(ctx context.Context, client *vault.Client, cfg *Config) error {
	zap.L().Info("Starting Get Secrets", zap.String("path", cfg.AppEnv))
	secret, err := client.Secrets.KvV2Read(ctx, cfg.AppEnv, vault.WithMountPath("secret"))
	if err != nil {
		return err
	}
	zap.L().Info("Success Get Secret")

	get := func(key, fallback string) string {
		if val, ok := secret.Data.Data[key].(string); ok && val != "" {
			return val
		}
		return fallback
	}

	cfg.Database.User = get("postgres_user", cfg.Database.User)
	cfg.Database.Password = get("postgres_password", cfg.Database.Password)
	cfg.Redis.Password = get("redis_password", cfg.Redis.Password)
	cfg.Security.EncryptionSecret = get("encryption_secret", cfg.Security.EncryptionSecret)
	cfg.Telegram.APIHash = get("telegram_api_hash", cfg.Telegram.APIHash)
	cfg.Telegram.BridgeToken = get("telegram_bridge_token", cfg.Telegram.BridgeToken)
	cfg.Bootstrap.APIKey = get("bootstrap_api_key", cfg.Bootstrap.APIKey)
	cfg.Flagsmith.ApiKey = get("flagsmith_api_key", cfg.Flagsmith.ApiKey)
	cfg.Minio.SecretKey = get("minio_secret_key", cfg.Minio.SecretKey)
	return nil
}

// AIReviewerEmail returns the sentinel reviewer address, falling back to the default.
func (c *Config) AIReviewerEmail() string {
	if c == nil || strings.TrimSpace(c.Security.AIReviewerEmail) == "" {
		return DefaultAIReviewerEmail
	}
	return strings.ToLower(strings.TrimSpace(c.Security.AIReviewerEmail))
}

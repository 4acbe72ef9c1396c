package constants

import "time"

const (
	DefaultSignatureHeader = "X-Signature"
)

const (
	MinLimit     = 1
	MaxLimit     = 100
	DefaultLimit = 50
)

const (
	TopSendersLimit = 10
)

const (
	DefaultBodyMaxBytes = 4096
)

const (
	DefaultWebhookPerMinute = 60
	DefaultAPIPerMinute     = 100
)

const (
	CacheKeyPrefixMessage = "msg:"
	DefaultCacheTTL       = 24 * time.Hour
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	FallbackAllow = "allow"
	FallbackDeny  = "deny"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

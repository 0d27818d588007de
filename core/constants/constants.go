package constants

import "time"

const (
	DefaultRequestTimeout = 45 * time.Second
	DefaultModelTimeout   = 20 * time.Second
	DefaultTimeout        = 10 * time.Second
	DirectReadTimeout     = 3 * time.Second
	ShutdownTimeout       = 15 * time.Second
)

const (
	HeaderRequestID   = "X-Request-ID"
	ContextRequestID  = "request_id"
	RequestIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	RequestIDLength   = 12
)

// Reply sources reported in the chat response. Diagnostic only.
const (
	SourceModelWithTools = "openai+tools"
	SourceModel          = "openai"
	SourceToolsDirect    = "tools-direct"
	SourceFallback       = "fallback"
)

const (
	RedisKeyCourtCatalog = "courtbook:courts:%s"
)

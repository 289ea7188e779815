package authflow

import "context"

type contextKey uint8

const (
	clientIPKey contextKey = iota + 1
	userAgentKey
)

// WithClientIP attaches the caller's IP address to ctx. Activity records
// produced by a Dispatch with this context carry it as "ip" metadata.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// WithUserAgent attaches the client user agent to ctx. It is recorded as
// "user_agent" activity metadata.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func clientIPFromContext(ctx context.Context) string  { return contextString(ctx, clientIPKey) }
func userAgentFromContext(ctx context.Context) string { return contextString(ctx, userAgentKey) }

func contextString(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

package events

const (
	// KindProviderRateLimited identifies a transient rate-limit error.
	KindProviderRateLimited Kind = "provider.rate_limited"
	// KindProviderSessionExpired identifies a dead peer session.
	KindProviderSessionExpired Kind = "provider.session_expired"
	// KindProviderConfigurationInvalid identifies a non-retryable config rejection.
	KindProviderConfigurationInvalid Kind = "provider.configuration_invalid"
	// KindProviderError identifies any other peer-reported error.
	KindProviderError Kind = "provider.error"
	// KindRateLimitsUpdated identifies a quota snapshot update.
	KindRateLimitsUpdated Kind = "provider.rate_limits_updated"
)

// ProviderRateLimited marks a peer rate-limit error.
type ProviderRateLimited struct {
	Base
	Code    string
	Message string
}

// NewProviderRateLimited creates a rate limited event.
func NewProviderRateLimited(code, message string) ProviderRateLimited {
	return ProviderRateLimited{Base: NewBase(KindProviderRateLimited), Code: code, Message: message}
}

// ProviderSessionExpired marks the peer session as gone.
type ProviderSessionExpired struct {
	Base
	Code    string
	Message string
}

// NewProviderSessionExpired creates a session expired event.
func NewProviderSessionExpired(code, message string) ProviderSessionExpired {
	return ProviderSessionExpired{Base: NewBase(KindProviderSessionExpired), Code: code, Message: message}
}

// ProviderConfigurationInvalid marks a configuration rejection.
type ProviderConfigurationInvalid struct {
	Base
	Code    string
	Message string
}

// NewProviderConfigurationInvalid creates a configuration invalid event.
func NewProviderConfigurationInvalid(code, message string) ProviderConfigurationInvalid {
	return ProviderConfigurationInvalid{Base: NewBase(KindProviderConfigurationInvalid), Code: code, Message: message}
}

// ProviderError marks any other peer-reported error. Details holds the
// sanitized error payload.
type ProviderError struct {
	Base
	Code    string
	Message string
	Details map[string]any
}

// NewProviderError creates a generic provider error event.
func NewProviderError(code, message string, details map[string]any) ProviderError {
	return ProviderError{Base: NewBase(KindProviderError), Code: code, Message: message, Details: details}
}

// RateLimitEntry is one named quota in a rate limits snapshot.
type RateLimitEntry struct {
	Name         string
	Limit        int
	Remaining    int
	ResetSeconds float64
}

// RateLimitsUpdated carries the current quota snapshot.
type RateLimitsUpdated struct {
	Base
	Limits []RateLimitEntry
}

// NewRateLimitsUpdated creates a rate limits snapshot event.
func NewRateLimitsUpdated(limits []RateLimitEntry) RateLimitsUpdated {
	return RateLimitsUpdated{Base: NewBase(KindRateLimitsUpdated), Limits: limits}
}

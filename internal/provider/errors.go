package provider

import (
	"errors"
	"strings"
)

// ErrEmptyResponse indicates the model returned no usable content parts.
// Fatal to the enclosing turn.
var ErrEmptyResponse = errors.New("model returned empty response")

// DummySignature is the placeholder replayed in place of a stored thought
// signature when the provider has rejected the stored one as stale.
var DummySignature = []byte("skip_thought_signature_validator")

// signaturePatterns identify a provider-side thought-signature validation
// failure.
//
// NOTE: string matching is used because the SDK does not expose a typed
// error for this rejection. This is a documented exception to the project
// rule against strings.Contains(err.Error(), ...). Re-evaluate if the SDK
// adds structured error types.
var signaturePatterns = []string{
	"thought signature",
	"thought_signature",
}

// IsSignatureError reports whether err is a thought-signature validation
// failure from the provider. Such failures are recoverable exactly once by
// replaying the transcript with DummySignature placeholders.
func IsSignatureError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range signaturePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

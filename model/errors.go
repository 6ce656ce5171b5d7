package model

import "errors"

var (
	// ErrAuth means the provider rejected or never received the API key.
	ErrAuth = errors.New("provider authentication failed")

	// ErrRateLimited means the provider returned 429 and retries ran out.
	ErrRateLimited = errors.New("provider rate limit exceeded")

	// ErrGeneration means the model returned no usable output.
	ErrGeneration = errors.New("no usable completion")
)

package entity

import "errors"

// Standard domain errors. The API layer maps these to HTTP statuses; the
// parse endpoint folds them into the five-field response shape.
var (
	// ErrInvalidRequest covers caller input errors: missing or non-string
	// command, malformed body. No upstream call is attempted.
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRateLimitExceeded means the session used up its model-call budget.
	ErrRateLimitExceeded = errors.New("rate limit exceeded: too many model calls")

	// ErrUpstreamTransport means the model service was unreachable or
	// answered non-2xx. Never retried automatically.
	ErrUpstreamTransport = errors.New("model service call failed")

	// ErrNoJSON means the model responded but no shape yielded a JSON object.
	ErrNoJSON = errors.New("no JSON object in model response")

	// ErrContractViolation means extracted JSON is missing required
	// ParsedCommand fields or has wrong types.
	ErrContractViolation = errors.New("model response missing required fields")

	// ErrMissingFields is the domain validation error: contract-valid JSON
	// whose action-specific required fields are absent or falsy.
	ErrMissingFields = errors.New("required fields missing")

	// ErrLoanNotFound means name resolution found no loan across all tiers.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrUnknownAction means the action endpoint got an unrecognized action.
	ErrUnknownAction = errors.New("unknown action")

	ErrInternalServer = errors.New("an internal error occurred")
)

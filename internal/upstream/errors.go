package upstream

import "fmt"

// RateLimitError means the upstream responded 429. The client boundary cools
// the credential and returns this error without retrying the call on a
// different credential, so the task aborts and runs again next tick.
type RateLimitError struct {
	CredentialAppID string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("upstream: rate limited (429) on credential %s", e.CredentialAppID)
}

// AuthError means the upstream responded 401 during token acquisition. The
// credential is marked errored in the backing store and its token evicted.
type AuthError struct {
	CredentialAppID string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("upstream: auth failure (401) on credential %s", e.CredentialAppID)
}

// TransientError covers any other non-2xx response, timeout, or connection
// reset. Callers decide whether to continue: a search failure aborts the
// task, a per-item failure just skips that item.
type TransientError struct {
	Status     int
	BodyExcerpt string
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("upstream: transient error, status %d: %s", e.Status, e.BodyExcerpt)
}

// BulkNotAuthorizedError is raised internally when a bulk batch 403s. It
// never escapes FetchMany — the 403 is handled locally by falling back to
// per-item calls for that batch — but is a distinct case for clarity at the
// call site that triggers the fallback.
type BulkNotAuthorizedError struct{}

func (e *BulkNotAuthorizedError) Error() string {
	return "upstream: bulk endpoint not authorized for this credential (403)"
}

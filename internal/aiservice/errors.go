package aiservice

import "govctl/internal/govctlerr"

// providerTransientErr marks an error as retryable/coolable: network
// failures and 429/5xx responses, as opposed to 4xx errors (bad request,
// auth failure) which the caller should not retry against the same
// provider.
func providerTransientErr(p Provider, err error) error {
	return govctlerr.New(govctlerr.KindTransient, "aiservice.complete["+string(p)+"]", err)
}

// providerAuthErr marks a 401/403-shaped response. Per the fallback
// chain's failure semantics, auth errors never advance to the next
// provider: the credential is wrong for this provider, and cooling/
// retrying it won't fix that, so Complete returns it immediately.
func providerAuthErr(p Provider, err error) error {
	return govctlerr.New(govctlerr.KindAuth, "aiservice.complete["+string(p)+"]", err)
}

// providerMalformedErr marks a 400-shaped response: the request itself is
// invalid, so every provider in the chain would reject it identically and
// Complete must not waste the fallback chain retrying it elsewhere.
func providerMalformedErr(p Provider, err error) error {
	return govctlerr.New(govctlerr.KindConfig, "aiservice.complete["+string(p)+"]", err)
}

func isTransient(err error) bool {
	return govctlerr.IsKind(err, govctlerr.KindTransient)
}

// isFailFast reports whether err should abort the fallback chain
// immediately rather than advancing to the next provider.
func isFailFast(err error) bool {
	return govctlerr.IsKind(err, govctlerr.KindAuth) || govctlerr.IsKind(err, govctlerr.KindConfig)
}

package rostermatch

import "errors"

var (
	// ErrRosterPathRequired is returned when NewMatcher receives an empty roster path.
	ErrRosterPathRequired = errors.New("roster path is required")

	// ErrProviderRequired is returned when NewMatcher receives a nil embedding provider.
	ErrProviderRequired = errors.New("embedding provider is required")

	// ErrStoreRequired is returned when NewMatcher receives a nil cache store.
	ErrStoreRequired = errors.New("cache store is required")

	// ErrMatcherClosed is returned by operations on a closed Matcher.
	ErrMatcherClosed = errors.New("matcher is closed")
)

package notees

import "errors"

var (
	// ErrNoProvider is returned by Build when no identity provider was set.
	ErrNoProvider = errors.New("notees: identity provider is required")
	// ErrBuilderUsed is returned when Build is called twice on one Builder.
	ErrBuilderUsed = errors.New("notees: builder already used")
	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("notees: invalid config")
	// ErrClosed is returned by App operations after Close.
	ErrClosed = errors.New("notees: app closed")
	// ErrNoPosts is returned by App.ReloadFeed when the app was built without a repository.
	ErrNoPosts = errors.New("notees: posts not configured")

	// ErrSignUpUnsupported is returned by SignUp when the provider cannot register accounts.
	ErrSignUpUnsupported = errors.New("notees: sign up not supported by provider")

	ErrAllFieldsRequired   = errors.New("All fields are required.")
	ErrPasswordMismatch    = errors.New("Passwords do not match.")
	ErrCredentialsRequired = errors.New("Email and password are required.")
)

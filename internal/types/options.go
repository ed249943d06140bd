package types

// Option is a functional option for configuring a single submission.
type Option func(*SubmitOptions)

// ApplyOptions applies functional options to create SubmitOptions.
func ApplyOptions(opts ...Option) *SubmitOptions {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return options
}

package domain

import "errors"

var (
	// ErrInvalidRule marks a rule descriptor that breaks the Rule contract.
	ErrInvalidRule = errors.New("invalid migration rule")

	// ErrUnknownRule is returned when a run targets a rule id that is not registered.
	ErrUnknownRule = errors.New("unknown migration rule")

	// ErrUnsupportedConfigShape is returned when a config file exists but is not
	// written in a shape the document model can rewrite (e.g. module.exports).
	ErrUnsupportedConfigShape = errors.New("unsupported config file shape")

	// ErrMalformedConfig is returned when a config file does not parse.
	ErrMalformedConfig = errors.New("malformed config file")

	// ErrNotAnArray is returned when an array mutation targets a non-array field.
	ErrNotAnArray = errors.New("field is not an array")
)

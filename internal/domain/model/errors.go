package model

import "errors"

var (
	// ErrInvalidTimestamp is returned when a source timestamp cannot be parsed.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrInvalidArgument is returned for caller errors such as a non-positive item cap
	// or a malformed pull request URL.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUpstreamUnavailable is returned when GitHub could not be reached or
	// answered with an error.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrPersistence is returned when the durable result store fails.
	ErrPersistence = errors.New("persistence failure")

	// ErrPRNotFound is returned when the pull request is not tracked.
	ErrPRNotFound = errors.New("pull request not found")
)

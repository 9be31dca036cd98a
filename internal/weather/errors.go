package weather

import "errors"

var (
	// ErrSourceUnavailable is returned when the weather provider cannot be reached
	// or answers with something we cannot use.
	ErrSourceUnavailable = errors.New("weather source unavailable")

	// ErrPersistence is returned when a store transaction failed and was rolled back.
	ErrPersistence = errors.New("persistence error")

	// ErrNoData means there is nothing to summarize yet. It is not a failure.
	ErrNoData = errors.New("no weather data available")

	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")
)

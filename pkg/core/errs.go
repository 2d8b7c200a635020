package core

import (
	"errors"
	"fmt"
)

var (
	ErrTransport            = errors.New("exchange transport failure")
	ErrNoData               = errors.New("no data received")
	ErrInsufficientData     = errors.New("insufficient data")
	ErrUnsupportedPair      = errors.New("unsupported pair")
	ErrInvalidPair          = errors.New("invalid pair")
	ErrNotificationDelivery = errors.New("notification delivery failed")
)

// PairError attaches the trading pair to an error raised while processing it
type PairError struct {
	Pair string
	Err  error
}

func (e *PairError) Error() string {
	return fmt.Sprintf("%s: %v", e.Pair, e.Err)
}

func (e *PairError) Unwrap() error {
	return e.Err
}

// NewPairError wraps err with the pair, nil stays nil
func NewPairError(pair string, err error) error {
	if err == nil {
		return nil
	}
	return &PairError{Pair: pair, Err: err}
}

package kcoop

import "github.com/arloliu/kcoop/types"

// Sentinel errors re-exported from the types package.
var (
	ErrCancelled      = types.ErrCancelled
	ErrCommitFailed   = types.ErrCommitFailed
	ErrDeliveryFailed = types.ErrDeliveryFailed
	ErrProcessing     = types.ErrProcessing
	ErrProducerClosed = types.ErrProducerClosed

	ErrInvalidConfig   = types.ErrInvalidConfig
	ErrBrokerRequired  = types.ErrBrokerRequired
	ErrHandlerRequired = types.ErrHandlerRequired
	ErrSenderRequired  = types.ErrSenderRequired
	ErrAlreadyStarted  = types.ErrAlreadyStarted
	ErrNotStarted      = types.ErrNotStarted

	ErrNoMembers       = types.ErrNoMembers
	ErrUnknownStrategy = types.ErrUnknownStrategy
	ErrNotOwned        = types.ErrNotOwned
	ErrUnknownTopic    = types.ErrUnknownTopic

	ErrUnknownPartition = types.ErrUnknownPartition
)

// Error types re-exported from the types package.
type (
	ProcessingError = types.ProcessingError
	CommitError     = types.CommitError
	DeliveryError   = types.DeliveryError
)

// IsCancelled reports whether err is an expected cancellation rather than a fault.
func IsCancelled(err error) bool {
	return types.IsCancelled(err)
}

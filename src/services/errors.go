package services

import (
	"errors"
	"fmt"
)

// Failure classifications carried on sync results. Every classification
// except ConfigurationMissing is absorbed at the orchestrator boundary and
// reported as a successful result with a warning.
const (
	FailureAuthentication       = "AuthenticationFailed"
	FailureEndpointNotFound     = "EndpointNotFound"
	FailureConnectivity         = "ConnectivityFailure"
	FailureMalformedResponse    = "MalformedResponse"
	FailureConfigurationMissing = "ConfigurationMissing"

	// WarningNoBalanceFound marks a zero-result success; an empty account is
	// a legitimate state, not a failure.
	WarningNoBalanceFound = "NoBalanceFound"
)

// ErrConfigurationMissing is the only error SyncBalances surfaces to its
// caller; monitoring should alert on this alone.
var ErrConfigurationMissing = errors.New("provider API key is not configured")

// ProviderError classifies a failed negotiation against the balance provider.
type ProviderError struct {
	Classification string
	Err            error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Classification, e.Err)
	}
	return e.Classification
}

func (e *ProviderError) Unwrap() error { return e.Err }

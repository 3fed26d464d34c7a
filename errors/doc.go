// Package errors provides standardized error handling for filestreams components.
//
// # Error Classification
//
// Errors fall into three classes that drive retry decisions:
//
//   - Transient: timeouts, lost connections, unreadable files (retry recommended)
//   - Invalid: malformed input, bad configuration, unresolvable targets (do not retry)
//   - Fatal: resource exhaustion, corruption (stop processing)
//
// Framework code wraps errors with component context:
//
//	errors.WrapTransient(err, "Component", "Method", "action")
//	errors.WrapInvalid(err, "Component", "Method", "action")
//	errors.WrapFatal(err, "Component", "Method", "action")
//
// producing messages of the form "component.method: action failed: cause".
//
// # File Pipeline Errors
//
// The file source and sink report failures with four typed errors:
//
//	*DiscoveryError   directory could not be listed (transient)
//	*SplitError       file could not be split into messages (transient)
//	*ResolutionError  sink target could not be computed (invalid)
//	*WriteError       filesystem failure while writing (transient)
//
// Each carries the path or expression involved, unwraps to its cause, and is
// understood by IsTransient, IsInvalid and Classify:
//
//	var werr *errors.WriteError
//	if errors.As(err, &werr) {
//	    logger.Error("Write failed", "path", werr.Path, "error", werr.Err)
//	}
//
// # Retry Configuration
//
// RetryConfig converts to the pkg/retry Config used by components:
//
//	cfg := errors.DefaultRetryConfig().ToRetryConfig()
//	err := retry.Do(ctx, cfg, operation)
package errors

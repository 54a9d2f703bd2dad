package dispatch

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a malformed handler registration. It is fatal at startup.
type ConfigurationError struct {
	Kind    Kind
	Matcher string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("dispatch: invalid handler %s/%s: %s", e.Kind, e.Matcher, e.Reason)
}

// Code returns the error code used in logs.
func (e *ConfigurationError) Code() string { return "CONFIGURATION_ERROR" }

// HandlerError reports an action that failed, panicked or timed out.
type HandlerError struct {
	Update  Update
	Matcher string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("dispatch: handler %s/%s failed: %v", e.Update.Kind, e.Matcher, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// Code returns the error code used in logs.
func (e *HandlerError) Code() string { return "HANDLER_ERROR" }

// DeliveryError reports a reply that the transport could not send.
type DeliveryError struct {
	Update  Update
	Matcher string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("dispatch: reply delivery for %s/%s failed: %v", e.Update.Kind, e.Matcher, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Code returns the error code used in logs.
func (e *DeliveryError) Code() string { return "DELIVERY_ERROR" }

// ErrActionPanic wraps a panic recovered from an action.
var ErrActionPanic = errors.New("action panicked")

// ErrTransportPanic wraps a panic recovered from Transport.Send.
var ErrTransportPanic = errors.New("transport panicked")

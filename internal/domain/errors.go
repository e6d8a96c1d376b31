package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSegmentation signals a document that cannot be parsed as its declared kind.
	ErrSegmentation = errors.New("segmentation failed")
	// ErrRemoteService signals a transport or protocol-level failure from the model call.
	ErrRemoteService = errors.New("remote service error")
	// ErrProtocol signals an unexpected remote response shape.
	ErrProtocol = errors.New("unexpected remote response format")
	// ErrEmptyResponse signals that there is nothing to normalize.
	ErrEmptyResponse = errors.New("empty model response")
	// ErrAuth signals a rejected credential exchange.
	ErrAuth = errors.New("credential exchange rejected")
	// ErrSampleNotFound signals a missing sample file.
	ErrSampleNotFound = errors.New("sample not found")
)

// RemoteServiceError wraps ErrRemoteService with the remote status and detail.
type RemoteServiceError struct {
	StatusCode int
	Detail     string
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrRemoteService.Error(), e.StatusCode, e.Detail)
}

func (e *RemoteServiceError) Unwrap() error { return ErrRemoteService }

// NewRemoteServiceError creates a remote service error.
func NewRemoteServiceError(status int, detail string) error {
	return &RemoteServiceError{StatusCode: status, Detail: detail}
}

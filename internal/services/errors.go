package services

import (
	"fmt"
	"net/http"

	"github.com/desertthunder/plsort/internal/shared"
)

// UpstreamError is a non-2xx response from the Web API. It matches [shared.ErrUpstream], and
// [shared.ErrUnauthorized] as well when the status is 401.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("spotify API error: status %d: %s", e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() []error {
	if e.Status == http.StatusUnauthorized {
		return []error{shared.ErrUpstream, shared.ErrUnauthorized}
	}
	return []error{shared.ErrUpstream}
}

// TransientError is a network-level failure (timeout, reset, DNS) where no response was read.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() []error {
	return []error{shared.ErrTransient, e.Err}
}

// PartialApplyError reports a replace that stopped after Applied of Total batches were accepted.
// The playlist is left holding the applied prefix of the new order.
type PartialApplyError struct {
	Applied int
	Total   int
	Err     error
}

func (e *PartialApplyError) Error() string {
	return fmt.Sprintf("applied %d of %d batches: %v", e.Applied, e.Total, e.Err)
}

func (e *PartialApplyError) Unwrap() []error {
	return []error{shared.ErrPartialApply, e.Err}
}

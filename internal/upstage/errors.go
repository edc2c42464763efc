package upstage

import "errors"

var (
	// ErrSubmissionRejected is returned when the remote service answers a
	// document upload with any status other than 202 Accepted.
	ErrSubmissionRejected = errors.New("submission rejected")

	// ErrPollTransport is returned when a status check fails at the transport
	// level. The poll loop halts for that request; there is no retry.
	ErrPollTransport = errors.New("status check failed")

	// ErrRemoteFailure is returned when the remote service reports a request
	// as failed. Terminal, not retried.
	ErrRemoteFailure = errors.New("remote processing failed")

	// ErrDownload is returned when fetching a completed result fails.
	ErrDownload = errors.New("result download failed")
)

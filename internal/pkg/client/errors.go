package client

import "github.com/pkg/errors"

// ErrLoginFailed indicates that the server rejected the credentials.
var ErrLoginFailed = errors.New("login failed")

// ErrNoMoreQuestions indicates that the server has no unserved questions left
// for this session.
var ErrNoMoreQuestions = errors.New("no more questions")

// ErrServerError indicates an ERROR reply from the server.
var ErrServerError = errors.New("server error")

// ErrUnexpectedReply indicates a reply that does not match the request.
var ErrUnexpectedReply = errors.New("unexpected reply")

package eventchannel

import (
	"github.com/pkg/errors"
)

var (
	ErrCannotConnect    = errors.New("connection cannot be established")
	ErrConnectionClosed = errors.New("connection has been closed")
	ErrTerminated       = errors.New("connection terminated by caller")
	ErrMalformedMessage = errors.New("malformed channel message")
	ErrInvalidIdentity  = errors.New("exactly one of user id or mester id must be set")
)

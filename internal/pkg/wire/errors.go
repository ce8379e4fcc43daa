package wire

import "github.com/pkg/errors"

// ErrMessageIncomplete indicates that more bytes are needed to decode a whole frame.
var ErrMessageIncomplete = errors.New("message incomplete")

// ErrMalformedMessage indicates that the buffered bytes are not a valid frame.
var ErrMalformedMessage = errors.New("malformed message")

// ErrEmptyCommand indicates an encode attempt with no command.
var ErrEmptyCommand = errors.New("empty command")

// ErrCommandTooLong indicates a command longer than the command field.
var ErrCommandTooLong = errors.New("command too long")

// ErrInvalidCommand indicates a command containing a protocol delimiter.
var ErrInvalidCommand = errors.New("command contains delimiter")

// ErrInvalidField indicates a field containing a protocol delimiter.
var ErrInvalidField = errors.New("field contains delimiter")

// ErrDataTooLong indicates a data section exceeding the length field capacity.
var ErrDataTooLong = errors.New("data too long")

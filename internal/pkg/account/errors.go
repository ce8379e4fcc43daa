package account

import "github.com/pkg/errors"

// ErrAccountNotFound indicates an operation on a username with no account.
var ErrAccountNotFound = errors.New("account not found")

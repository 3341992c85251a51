package service

import "errors"

// ErrInvalidInput marks caller mistakes rejected before any platform call;
// the HTTP layer maps it to a 400 instead of a gateway error.
var ErrInvalidInput = errors.New("invalid input")

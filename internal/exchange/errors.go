package exchange

import "errors"

// Rejection kinds returned by exchange operations. The HTTP adapter is the
// only place these are translated into status codes; the engine itself
// never panics on a rejected request.
var (
	ErrAgentNotFound        = errors.New("agent not found")
	ErrCompanyNotFound      = errors.New("company not found")
	ErrInsufficientFunds    = errors.New("insufficient balance")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrTickerTaken          = errors.New("ticker already taken")
	ErrNotPrivate           = errors.New("company is not private")
	ErrFounderShares        = errors.New("founder holds fewer shares than offered")
)

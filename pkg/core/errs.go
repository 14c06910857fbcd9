package core

import "errors"

var (
	ErrIncorrectPercentage  = errors.New("incorrect percentage")
	ErrIncorrectGranularity = errors.New("incorrect tick granularity")
	ErrAlreadyExecuted      = errors.New("order already executed")
	ErrNotExecuted          = errors.New("order not executed")
	ErrNoAmount             = errors.New("no amount")

	ErrInvalidAmount = errors.New("invalid amount")
	ErrUnknownMarket = errors.New("unknown market")
	ErrMarketExists  = errors.New("market already initialized")
	ErrUnknownOrder  = errors.New("unknown order")
	ErrMergeChain    = errors.New("merge chain does not terminate")
)

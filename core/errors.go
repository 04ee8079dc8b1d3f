package core

import "strconv"

// ErrorCode int
type ErrorCode int

const (
	// ErrUnknown unknown
	ErrUnknown ErrorCode = 100000

	// ErrBadDebtNoPair borrow leg with no compatible deposit leg
	ErrBadDebtNoPair ErrorCode = 100100
	// ErrStaleOracle required price or account data unavailable
	ErrStaleOracle ErrorCode = 100101
	// ErrZeroDeposit obligation has no deposit value
	ErrZeroDeposit ErrorCode = 100102

	// ErrTableNotActive table referenced before activation latency elapsed
	ErrTableNotActive ErrorCode = 100200
	// ErrTableFull table has no room for the requested addresses
	ErrTableFull ErrorCode = 100201

	// ErrTransactionTooLarge compiled transaction exceeds the packet limit
	ErrTransactionTooLarge ErrorCode = 100300
	// ErrSubmitFailed submission rejected by the network
	ErrSubmitFailed ErrorCode = 100301
)

func (e ErrorCode) String() string {
	return strconv.Itoa(int(e))
}

func (e ErrorCode) Error() string {
	return e.String()
}

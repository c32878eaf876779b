package ledger

import "errors"

var (
	// ErrZeroAmount indicates an operation was requested with a zero amount.
	ErrZeroAmount = errors.New("ledger: amount must be positive")

	// ErrInsufficientShares indicates the holder owns fewer shares than requested.
	ErrInsufficientShares = errors.New("ledger: insufficient shares")

	// ErrNoShares indicates a reward arrived while no shares are outstanding.
	ErrNoShares = errors.New("ledger: no shares outstanding")

	// ErrPaymentFailed indicates a reward payment was refused by the recipient.
	ErrPaymentFailed = errors.New("ledger: reward payment failed")

	// ErrTransferFailed indicates a principal transfer was refused by the recipient.
	ErrTransferFailed = errors.New("ledger: principal transfer failed")

	// ErrDepositTooSmall indicates a deposit would mint zero shares.
	ErrDepositTooSmall = errors.New("ledger: deposit too small to mint shares")

	// ErrOverflow indicates a result does not fit in 256 bits.
	ErrOverflow = errors.New("ledger: arithmetic overflow")

	// ErrInvariant indicates the ledger state violates an accounting invariant.
	ErrInvariant = errors.New("ledger: invariant violation")

	// ErrHolderNotFound indicates no record exists for the account.
	ErrHolderNotFound = errors.New("ledger: holder not found")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("ledger: required parameter is nil")

	// ErrInvalidRecord indicates a persisted record is malformed.
	ErrInvalidRecord = errors.New("ledger: invalid record")

	// ErrRecipientRefused is returned by payment sinks when a recipient cannot
	// accept value.
	ErrRecipientRefused = errors.New("ledger: recipient refused payment")
)

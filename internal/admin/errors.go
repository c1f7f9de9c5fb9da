package admin

import "errors"

var (
	// ErrInvalidPassphrase is returned when a login does not match.
	ErrInvalidPassphrase = errors.New("admin: invalid passphrase")

	// ErrInvalidToken is returned for a malformed, forged or revoked token.
	ErrInvalidToken = errors.New("admin: invalid token")

	// ErrSessionExpired is returned when a token's lifetime has passed.
	ErrSessionExpired = errors.New("admin: session expired")

	// ErrUnknownFilter is returned for a status or date range the board
	// does not recognise.
	ErrUnknownFilter = errors.New("admin: unknown filter")

	// ErrBoardClosed is returned by operations on a closed board.
	ErrBoardClosed = errors.New("admin: board closed")
)

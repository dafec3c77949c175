package engine

import "errors"

// Sentinel errors returned by Apply. ErrNotMember, ErrWrongCapability and
// ErrImpersonation are authorization errors (dropped silently, no
// broadcast); ErrUnknownMap and ErrMapTaken are sanitization errors
// (dropped, prior state stands); ErrBadConfig surfaces as a lobby-creation
// failure; ErrLobbyComplete means the ceremony is over.
var (
	ErrNotMember       = errors.New("engine: connection is not a member of this lobby")
	ErrWrongCapability = errors.New("engine: connection does not hold the required capability")
	ErrImpersonation   = errors.New("engine: team name does not match the connection's bound name")
	ErrUnknownMap      = errors.New("engine: map is not in the active pool")
	ErrMapTaken        = errors.New("engine: map already picked or banned this ceremony")
	ErrUnknownMode     = errors.New("engine: mode is not active")
	ErrBadConfig       = errors.New("engine: invalid lobby configuration")
	ErrLobbyComplete   = errors.New("engine: ceremony has already concluded")
	ErrLobbyFull       = errors.New("engine: lobby already has two members")
	ErrNoPendingWinner = errors.New("engine: no winner proposal is outstanding")
	ErrSelfConfirm     = errors.New("engine: the reporting team cannot confirm its own proposal")
)

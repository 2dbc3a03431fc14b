package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// ErrNotFound covers both a missing local/peer and one that is not owned by the caller.
	ErrNotFound           = fmt.Errorf("not found or not owned by caller")
	ErrAccountNotFound    = fmt.Errorf("account not found")
	ErrNameTaken          = fmt.Errorf("name already taken")
	ErrInvalidName        = fmt.Errorf("invalid name")
	ErrAddressTaken       = fmt.Errorf("address already assigned")
	ErrBlockTaken         = fmt.Errorf("address block already assigned")
	ErrAddressesExhausted = fmt.Errorf("no free address left in local")
	ErrBlocksExhausted    = fmt.Errorf("could not find a free address block, retry later")
	ErrInvalidBlock       = fmt.Errorf("invalid address block")
	ErrNoPendingLocal     = fmt.Errorf("no pending local in session")
	ErrTransport          = fmt.Errorf("chat transport failure")
	ErrDispatcherClosed   = fmt.Errorf("dispatcher closed")
	ErrPollingStopped     = fmt.Errorf("update polling stopped")
)

package storage

import "errors"

// ErrNotFound is returned when a requested entity does not exist
// within the caller's tenant.
var ErrNotFound = errors.New("storage: not found")

// ErrLeaveNotPending is returned when a leave status transition is
// attempted on a request that has already been decided.
var ErrLeaveNotPending = errors.New("storage: leave request not pending")

// ErrManagerCycle is returned when a reporting manager update would
// create a cycle in the org hierarchy.
var ErrManagerCycle = errors.New("storage: reporting cycle")

package model

import "errors"

// ErrNotFound is returned by store lookups when the requested entity
// does not exist. Both the local and remote stores wrap or return it so
// the sync engine can test for a missing row with errors.Is regardless
// of which side it queried.
var ErrNotFound = errors.New("not found")

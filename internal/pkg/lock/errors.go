package lock

import "errors"

// ErrLockTimeout is returned by LockContext when the context deadline
// passes before the key could be acquired.
var ErrLockTimeout = errors.New("lock acquisition timeout")

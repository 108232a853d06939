package client

import "errors"

// ErrClosed is returned by Lock, LockObjects, SurrenderNowait,
// AwaitAllLocks, ChangeFlag and LockInfo once Close has been called.
var ErrClosed = errors.New("client: closed")

package mcproxy

import "expvar"

// Per-address connection counters, mirroring the teacher's
// connOkByAddr/connErrByAddr/connSkippedByAddr in base_shard_manager.go:
// every Send that reaches a server counts as ok or err, and every request
// a caller declines to send because Callable returned false counts as
// skipped.
var (
	connOkByAddr      = expvar.NewMap("MemcacheProxyConnOkByAddrCounter")
	connErrByAddr     = expvar.NewMap("MemcacheProxyConnErrByAddrCounter")
	connSkippedByAddr = expvar.NewMap("MemcacheProxyConnSkippedByAddrCounter")
)

// RecordSkipped notes that a caller declined to send to this proxy
// because Callable reported it unavailable.
func (p *Proxy) RecordSkipped() {
	connSkippedByAddr.Add(p.Address, 1)
}

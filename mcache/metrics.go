package mcache

import "expvar"

// Per-address get counters, mirroring the teacher's
// getOkByAddr/getErrByAddr in sharded_client.go: a get (or gets) counts as
// ok once a server has answered at the transport level, even with a miss,
// and as err when the attempt against that server failed at the
// transport level.
var (
	getOkByAddr  = expvar.NewMap("MemcacheClientGetOkByAddrCounter")
	getErrByAddr = expvar.NewMap("MemcacheClientGetErrByAddrCounter")
)

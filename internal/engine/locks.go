package engine

import (
	"sync"

	id "tradelane/pkg/domain"
)

// tradeLocks serializes writes per trade using sharded mutexes. Trades hash to
// shards by FNV-1a of their id, so unrelated trades rarely contend while two
// attempts on the same trade always take the same mutex.
const numLockShards = 128

type tradeLocks struct {
	shards [numLockShards]sync.Mutex
}

func newTradeLocks() *tradeLocks {
	return &tradeLocks{}
}

func (l *tradeLocks) lock(tradeID id.TradeID) func() {
	shard := &l.shards[l.shardFor(tradeID)]
	shard.Lock()
	return shard.Unlock
}

func (l *tradeLocks) shardFor(tradeID id.TradeID) uint32 {
	return hashString(tradeID.String()) % numLockShards
}

func hashString(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

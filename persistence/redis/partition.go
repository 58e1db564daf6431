package redis

import (
	"github.com/buraksezer/consistent"
	"github.com/loomworks/loom/util"
	"github.com/spaolacci/murmur3"
)

type hasher struct{}

func (h hasher) Sum64(data []byte) uint64 {
	return murmur3.Sum64(data)
}

type member string

func (m member) String() string {
	return string(m)
}

// Ring maps instance ids onto queue partitions so that one instance's
// activations always land on the same list.
type Ring struct {
	partitionCount int
	hring          *consistent.Consistent
}

func NewRing(partitionCount int) *Ring {
	cfg := consistent.Config{
		PartitionCount:    partitionCount,
		ReplicationFactor: 20,
		Load:              1.25,
		Hasher:            hasher{},
	}
	hr := consistent.New([]consistent.Member{member("local")}, cfg)
	return &Ring{
		partitionCount: partitionCount,
		hring:          hr,
	}
}

func (r *Ring) GetPartition(key string) int {
	return r.hring.FindPartitionID([]byte(key))
}

func (r *Ring) GetPartitions() []int {
	partitions := make([]int, 0, r.partitionCount)
	for i := 0; i < r.partitionCount; i++ {
		partitions = append(partitions, i)
	}
	util.Shuffle(partitions)
	return partitions
}

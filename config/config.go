package config

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

type Config struct {
	RedisConfig            RedisStorageConfig
	HttpPort               int
	StorageType            StorageType
	PartitionCount         int
	ActivityBatchSize      int
	PollIntervalMillis     int
	ActionExecutorCapacity int
	ActionTimeoutMillis    int
	AnalyticsFile          string
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
}

package config

import "time"

const (
	DefaultMetadataQueueCap = 5
	DefaultFileQueueCap     = 1

	DefaultThrottleBase       = 500 * time.Millisecond
	DefaultThrottleMultiplier = 2.0
	DefaultThrottleMaxDelay   = 30 * time.Second
	DefaultMaxFailureCount    = 5

	DefaultMaxRetries = 3

	DefaultHistoryBatchSize     = 100
	DefaultHistoryFlushInterval = 2 * time.Second

	DefaultLogLevel = "info"
)

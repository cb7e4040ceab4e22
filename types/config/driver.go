package config

type StorageDriver int

const (
	// NoStorage keeps job history out of any backing store.
	NoStorage StorageDriver = iota
	Postgres
	Redis
)

type MessageQueueDriver int

const (
	NoMessageQueue MessageQueueDriver = iota
	RabbitMQ
)

func (d MessageQueueDriver) String() string {
	switch d {
	case RabbitMQ:
		return "rabbitmq"
	case NoMessageQueue:
		return "none"
	default:
		return "unknown"
	}
}

// String converts the StorageDriver enum to a human-readable string.
func (d StorageDriver) String() string {
	switch d {
	case Redis:
		return "redis"
	case Postgres:
		return "postgres"
	case NoStorage:
		return "none"
	}
	return "unknown"
}

// ParseStorageDriver accepts the names produced by StorageDriver.String.
func ParseStorageDriver(name string) (StorageDriver, bool) {
	for _, d := range []StorageDriver{NoStorage, Postgres, Redis} {
		if d.String() == name {
			return d, true
		}
	}
	if name == "" {
		return NoStorage, true
	}
	return NoStorage, false
}

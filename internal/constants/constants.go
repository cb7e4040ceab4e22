package constants

// Advisory lock ids shared by every instance using the same database.
const (
	MigrationLock = iota + 1
	UserSeedLock
)

var Locks = []int{
	MigrationLock,
	UserSeedLock,
}

const (
	SchemaName = "driveq_schema"
	AppName    = "driveq"
)

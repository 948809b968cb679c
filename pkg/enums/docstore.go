package enums

import (
	"fmt"
	"strings"
)

// DocStoreDriver selects the backend of the document store.
type DocStoreDriver string

const (
	DocStoreDriverSQLite   DocStoreDriver = "sqlite"
	DocStoreDriverPostgres DocStoreDriver = "postgres"
	DocStoreDriverMongo    DocStoreDriver = "mongo"
)

var validDocStoreDrivers = []DocStoreDriver{
	DocStoreDriverSQLite,
	DocStoreDriverPostgres,
	DocStoreDriverMongo,
}

// String implements fmt.Stringer.
func (d DocStoreDriver) String() string {
	return string(d)
}

// IsSQL reports whether the driver is served by the gorm-backed store.
func (d DocStoreDriver) IsSQL() bool {
	return d == DocStoreDriverSQLite || d == DocStoreDriverPostgres
}

// ParseDocStoreDriver converts raw input into a DocStoreDriver.
func ParseDocStoreDriver(value string) (DocStoreDriver, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validDocStoreDrivers {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid document store driver %q", value)
}

package systemd

import (
	"context"

	sd "github.com/coreos/go-systemd/v22/dbus"
)

// managerAPI defines the subset of go-systemd's dbus.Conn used by
// DBusClient. Narrowing the SDK surface keeps unit tests off a real
// message bus.
//
// To use in tests:
//
//	type mockManagerAPI struct {
//	    units   []sd.UnitStatus
//	    props   map[string]map[string]interface{}
//	    listErr error
//	}
//
//	// ... implement the four methods
//
//	client := &DBusClient{api: &mockManagerAPI{...}, timeout: time.Second}
type managerAPI interface {
	// ListUnitsContext returns every unit currently loaded or referenced
	// by the manager.
	ListUnitsContext(ctx context.Context) ([]sd.UnitStatus, error)

	// GetUnitPropertiesContext returns the org.freedesktop.systemd1.Unit
	// properties of one unit.
	GetUnitPropertiesContext(ctx context.Context, unit string) (map[string]interface{}, error)

	// GetManagerProperty returns a Manager object property such as Version.
	GetManagerProperty(prop string) (string, error)

	// Close releases the underlying bus connection.
	Close()
}

// Ensure the go-systemd connection satisfies our interface at compile time.
var _ managerAPI = (*sd.Conn)(nil)

package systemd

import (
	"context"
	"errors"
	"fmt"
	"time"

	sd "github.com/coreos/go-systemd/v22/dbus"
)

const defaultCallTimeout = 5 * time.Second

// Bus selects which message bus the client connects to.
type Bus string

const (
	BusSystem Bus = "system"
	BusUser   Bus = "user"
)

// DBusClient implements Client over the systemd D-Bus API using the
// official go-systemd bindings.
type DBusClient struct {
	api     managerAPI
	timeout time.Duration
}

// NewDBusClient connects to the requested bus. timeout bounds each
// individual manager call.
func NewDBusClient(ctx context.Context, bus Bus, timeout time.Duration) (*DBusClient, error) {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	var (
		conn *sd.Conn
		err  error
	)
	switch bus {
	case BusUser:
		conn, err = sd.NewUserConnectionContext(ctx)
	default:
		conn, err = sd.NewSystemConnectionContext(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s bus: %w", bus, err)
	}

	return &DBusClient{
		api:     conn,
		timeout: timeout,
	}, nil
}

// Ping validates connectivity by reading the manager Version property.
func (c *DBusClient) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errors.New("systemd client is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := c.api.GetManagerProperty("Version"); err != nil {
		return fmt.Errorf("ping manager: %w", err)
	}
	return nil
}

// ListUnitNames returns the names of every unit the manager currently
// tracks, including units referenced but not loaded.
func (c *DBusClient) ListUnitNames(ctx context.Context) ([]string, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("systemd client is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	units, err := c.api.ListUnitsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}

	names := make([]string, 0, len(units))
	for _, unit := range units {
		names = append(names, unit.Name)
	}
	return names, nil
}

// GetUnitStatus fetches the snapshot of one unit in a single property
// read. The returned Name is the manager's canonical Id, which may
// differ from the requested name when aliases are involved.
func (c *DBusClient) GetUnitStatus(ctx context.Context, name string) (UnitStatus, error) {
	if c == nil || c.api == nil {
		return UnitStatus{}, errors.New("systemd client is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	props, err := c.api.GetUnitPropertiesContext(ctx, name)
	if err != nil {
		return UnitStatus{}, wrapLookup(name, err)
	}

	status := UnitStatus{}
	for key, dst := range map[string]*string{
		"Id":          &status.Name,
		"LoadState":   &status.LoadState,
		"ActiveState": &status.ActiveState,
		"SubState":    &status.SubState,
	} {
		value, err := stringProperty(props, name, key)
		if err != nil {
			return UnitStatus{}, err
		}
		*dst = value
	}
	if status.Name == "" {
		status.Name = name
	}
	return status, nil
}

// Close releases the bus connection.
func (c *DBusClient) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	c.api.Close()
	return nil
}

func stringProperty(props map[string]interface{}, unit, key string) (string, error) {
	value, ok := props[key]
	if !ok {
		return "", fmt.Errorf("unit %s: property %s missing", unit, key)
	}
	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("unit %s: property %s is %T, want string", unit, key, value)
	}
	return text, nil
}

package systemd

import (
	"errors"
	"fmt"

	godbus "github.com/godbus/dbus/v5"
)

// D-Bus error names the manager returns when a unit cannot be resolved.
const (
	dbusErrNoSuchUnit    = "org.freedesktop.systemd1.NoSuchUnit"
	dbusErrUnknownObject = "org.freedesktop.DBus.Error.UnknownObject"
)

// LookupError reports a unit the manager could not resolve at all. It is
// distinct from a unit in load state "not-found": that unit still has a
// classifiable snapshot, while a lookup failure aborts the check.
type LookupError struct {
	Unit string
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("look up unit %s: %v", e.Unit, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// wrapLookup converts D-Bus resolution failures into *LookupError and
// tags everything else as a transport failure for the same unit.
func wrapLookup(unit string, err error) error {
	switch dbusErrorName(err) {
	case dbusErrNoSuchUnit, dbusErrUnknownObject:
		return &LookupError{Unit: unit, Err: err}
	}
	return fmt.Errorf("unit %s properties: %w", unit, err)
}

// dbusErrorName extracts the D-Bus error name from err, if any. godbus
// surfaces errors both by value and by pointer depending on the call
// path, so both forms are checked.
func dbusErrorName(err error) string {
	var byValue godbus.Error
	if errors.As(err, &byValue) {
		return byValue.Name
	}
	var byRef *godbus.Error
	if errors.As(err, &byRef) && byRef != nil {
		return byRef.Name
	}
	return ""
}

// SPDX-License-Identifier: MIT
package xapi

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// DriverFunc connects a Device using a driver-specific DSN.
type DriverFunc func(ctx context.Context, dsn string) (Device, error)

var (
	driversMu sync.RWMutex
	drivers   = map[string]DriverFunc{}
)

// RegisterDriver makes a device transport available under a name.
// Drivers register themselves from an init function, like database/sql
// drivers do.
func RegisterDriver(name string, fn DriverFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if fn == nil {
		panic("xapi: RegisterDriver with nil driver")
	}
	if _, dup := drivers[name]; dup {
		panic("xapi: RegisterDriver called twice for driver " + name)
	}
	drivers[name] = fn
}

// Connect opens a Device through the named driver.
func Connect(ctx context.Context, name, dsn string) (Device, error) {
	driversMu.RLock()
	fn, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown device driver %q (registered: %v)", name, DriverNames())
	}
	return fn(ctx, dsn)
}

// DriverNames lists the registered drivers, sorted.
func DriverNames() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

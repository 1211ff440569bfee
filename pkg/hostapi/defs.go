package hostapi

import (
	"github.com/dmhelper/extension/internal/dispatcher"
)

// configStruct is the central configuration used by this library
type configStruct struct {
	// version is returned by the :VERSION: built-in
	version string

	// dispatcher handles event routing
	dispatcher *dispatcher.Dispatcher
}

// Init method initializes the config struct
func (c *configStruct) Init() {
	c.version = "No version set"
}

// SetVersion sets the version string returned by :VERSION:
func SetVersion(version string) {
	Config.version = version
}

// Version returns the configured version string.
func Version() string {
	return Config.version
}

// SetDispatcher sets the event dispatcher for handling commands
func SetDispatcher(d *dispatcher.Dispatcher) {
	Config.dispatcher = d
}

// GetDispatcher returns the configured dispatcher, or nil if not set
func GetDispatcher() *dispatcher.Dispatcher {
	return Config.dispatcher
}

package app

import (
	"github.com/coreos/go-systemd/v22/daemon"

	"kubemcp/pkg/logging"
)

// sdNotify is replaced in tests.
var sdNotify = daemon.SdNotify

// notify tells systemd about a state change. Outside a systemd unit it does
// nothing.
func notify(state string) {
	sent, err := sdNotify(false, state)
	if err != nil {
		logging.Warn("Systemd", "Failed to notify systemd (%s): %v", state, err)
		return
	}
	if sent {
		logging.Debug("Systemd", "Notified systemd: %s", state)
	}
}

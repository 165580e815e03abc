//go:build linux

package notify

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	dbusNotifyDest      = "org.freedesktop.Notifications"
	dbusNotifyPath      = "/org/freedesktop/Notifications"
	dbusNotifyInterface = "org.freedesktop.Notifications"
)

// dbusNotifier shows turn announcements on the operator's desktop.
type dbusNotifier struct {
	obj dbus.BusObject
}

// NewDesktop creates a Notifier that sends desktop notifications via D-Bus.
// Returns a no-op notifier if D-Bus is unavailable.
func NewDesktop() Notifier {
	conn, err := dbus.SessionBus()
	if err != nil {
		// D-Bus not available, graceful degradation
		return stubNotifier{}
	}
	return &dbusNotifier{obj: conn.Object(dbusNotifyDest, dbusNotifyPath)}
}

// Notify sends a notification via D-Bus.
func (n *dbusNotifier) Notify(ctx context.Context, e Event) error {
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(UrgencyNormal)),
		"desktop-entry": dbus.MakeVariant("karaoke"),
	}

	// Notify(app_name, replaces_id, icon, summary, body, actions, hints, timeout) -> id
	call := n.obj.CallWithContext(ctx,
		dbusNotifyInterface+".Notify",
		0,
		"Karaoke",
		uint32(0),
		"media-playback-start",
		fmt.Sprintf("Up next: %s", e.Title),
		e.Message(),
		[]string{},
		hints,
		int32(-1),
	)
	return call.Err
}

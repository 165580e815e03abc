package notify

import "context"

// Urgency represents notification priority levels per freedesktop spec.
type Urgency byte

// UrgencyNormal is used for turn announcements.
const UrgencyNormal Urgency = 1

// stubNotifier is used when desktop notifications are unavailable.
type stubNotifier struct{}

func (stubNotifier) Notify(context.Context, Event) error { return nil }

package telemetry

// Event is a domain event produced from one protocol frame.
//
// The set of variants is closed: RealDataEvent and AppInfoEvent.
type Event interface {
	// Tag is the protocol message tag the event was built from.
	Tag() uint16

	isEvent()
}

// RealDataEvent carries exactly one telemetry snapshot. Several protocol
// tags (firmware variants of the same message) produce it.
type RealDataEvent struct {
	tag      uint16
	Snapshot Snapshot
}

// NewRealDataEvent wraps snap in an event for tag.
func NewRealDataEvent(tag uint16, snap Snapshot) *RealDataEvent {
	return &RealDataEvent{tag: tag, Snapshot: snap}
}

// Tag implements Event.
func (e *RealDataEvent) Tag() uint16 { return e.tag }

func (*RealDataEvent) isEvent() {}

// AppInfoEvent carries the DTU's device information.
type AppInfoEvent struct {
	tag  uint16
	Info AppInfo
}

// NewAppInfoEvent wraps info in an event for tag.
func NewAppInfoEvent(tag uint16, info AppInfo) *AppInfoEvent {
	return &AppInfoEvent{tag: tag, Info: info}
}

// Tag implements Event.
func (e *AppInfoEvent) Tag() uint16 { return e.tag }

func (*AppInfoEvent) isEvent() {}

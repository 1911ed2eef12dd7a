package bittorrent

// Event represents an event done by a BitTorrent client.
type Event uint8

const (
	// None is the event when a BitTorrent client announces due to time lapsed
	// since the previous announce.
	None Event = iota

	// Started is the event sent by a BitTorrent client when it joins a swarm.
	Started

	// Stopped is the event sent by a BitTorrent client when it leaves a swarm.
	Stopped

	// Completed is the event sent by a BitTorrent client when it finishes
	// downloading all of the required chunks.
	Completed
)

var (
	eventToString = map[Event]string{
		None:      "none",
		Started:   "started",
		Stopped:   "stopped",
		Completed: "completed",
	}

	stringToEvent = map[string]Event{
		"":          None,
		"none":      None,
		"started":   Started,
		"stopped":   Stopped,
		"completed": Completed,
	}
)

// NewEvent returns the Event for a string provided by an announcing client.
//
// Unrecognized strings map to None: clients that send a value outside the
// protocol's enum are treated as making a plain periodic announce.
func NewEvent(eventStr string) Event {
	if e, ok := stringToEvent[eventStr]; ok {
		return e
	}
	return None
}

// String implements fmt.Stringer for Event.
func (e Event) String() string {
	if name, ok := eventToString[e]; ok {
		return name
	}
	panic("bittorrent: event has no associated name")
}

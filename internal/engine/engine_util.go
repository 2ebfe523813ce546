package engine

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func EventsOf(events []Event, eventType EventType) []Event {
	var out []Event
	for _, event := range events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

// NewDuel builds a bordered grid with both snakes at their default spawns.
func NewDuel(width, height, length int, sp Spawner) (State, error) {
	g, err := NewBorderedGrid(width, height)
	if err != nil {
		return State{}, err
	}
	snakes, err := DefaultSpawns(g, length)
	if err != nil {
		return State{}, err
	}
	_, s, err := NewState(g, snakes, sp)
	return s, err
}

package lending

// Action is the single operation currently valid for a visitor on a
// resource.
type Action string

const (
	// ActionTake - the resource is free and can be borrowed.
	ActionTake Action = "take"
	// ActionReturn - the visitor holds the resource and can return it.
	ActionReturn Action = "return"
	// ActionQueue - someone else holds it; the visitor can join the queue.
	ActionQueue Action = "queue"
	// ActionLeave - the visitor is queued and can leave the queue.
	ActionLeave Action = "leave"
)

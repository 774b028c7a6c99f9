package session

import "time"

// State is the controller's lifecycle state.
type State int

const (
	Idle State = iota
	Editing
	Transpiling
	Importing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Editing:
		return "Editing"
	case Transpiling:
		return "Transpiling"
	case Importing:
		return "Importing"
	default:
		return "Unknown"
	}
}

// View is everything the UI shows besides the editor contents.
type View struct {
	State           State
	DownloadEnabled bool
	CanTranspile    bool
	Status          string
	LastSaved       time.Time
	SourceName      string
}

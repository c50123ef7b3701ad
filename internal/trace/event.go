package trace

import "fmt"

// EventKind identifies a runtime execution event
type EventKind uint8

const (
	EventTestCaseStarted EventKind = iota + 1
	EventTestCaseEnded
	EventMethodEntered
	EventBranchEntered
	EventBranchExited
	EventSequencePointHit
)

// String returns the string representation of EventKind
func (k EventKind) String() string {
	switch k {
	case EventTestCaseStarted:
		return "TestCaseStarted"
	case EventTestCaseEnded:
		return "TestCaseEnded"
	case EventMethodEntered:
		return "MethodEntered"
	case EventBranchEntered:
		return "BranchEntered"
	case EventBranchExited:
		return "BranchExited"
	case EventSequencePointHit:
		return "SequencePointHit"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// IsMethodEvent reports whether the event belongs to a single method's stream
func (k EventKind) IsMethodEvent() bool {
	return k == EventBranchEntered || k == EventBranchExited || k == EventSequencePointHit
}

// Event is one instrumentation callback.
// EntityID is the section id for branch events and the sequence point id
// for hits; Name and Outcome are only set on test case events.
type Event struct {
	Kind       EventKind `msgpack:"k"`
	AssemblyID int       `msgpack:"a,omitempty"`
	MethodID   int       `msgpack:"m,omitempty"`
	EntityID   int       `msgpack:"e,omitempty"`
	Name       string    `msgpack:"n,omitempty"`
	Outcome    string    `msgpack:"o,omitempty"`
}

func (e Event) String() string {
	switch e.Kind {
	case EventTestCaseStarted:
		return fmt.Sprintf("%s %s", e.Kind, e.Name)
	case EventTestCaseEnded:
		return fmt.Sprintf("%s %s", e.Kind, e.Outcome)
	case EventMethodEntered:
		return fmt.Sprintf("%s %d:%d", e.Kind, e.AssemblyID, e.MethodID)
	default:
		return fmt.Sprintf("%s %d:%d#%d", e.Kind, e.AssemblyID, e.MethodID, e.EntityID)
	}
}

func TestCaseStarted(name string) Event {
	return Event{Kind: EventTestCaseStarted, Name: name}
}

func TestCaseEnded(outcome string) Event {
	return Event{Kind: EventTestCaseEnded, Outcome: outcome}
}

func MethodEntered(assemblyID, methodID int) Event {
	return Event{Kind: EventMethodEntered, AssemblyID: assemblyID, MethodID: methodID}
}

func BranchEntered(assemblyID, methodID, sectionID int) Event {
	return Event{Kind: EventBranchEntered, AssemblyID: assemblyID, MethodID: methodID, EntityID: sectionID}
}

func BranchExited(assemblyID, methodID, sectionID int) Event {
	return Event{Kind: EventBranchExited, AssemblyID: assemblyID, MethodID: methodID, EntityID: sectionID}
}

func SequencePointHit(assemblyID, methodID, pointID int) Event {
	return Event{Kind: EventSequencePointHit, AssemblyID: assemblyID, MethodID: methodID, EntityID: pointID}
}

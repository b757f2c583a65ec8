package eligibility

import (
	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/source"
)

// Classify maps an employee (and optionally one of their dependents) to a
// qualifying event. A dependent who aged out takes precedence over any
// employee status. Employee events are dated at the end of the termination
// month; without a termination date there is no employee event.
func (e *Engine) Classify(emp source.Employee, dep *source.Dependent, agedOut bool) Event {
	if dep != nil && agedOut && dep.BirthDate.Valid {
		return Event{Type: EventIneligibleDependent, Date: e.ageOutDate(dep.BirthDate.Date)}
	}

	var t EventType
	switch {
	case e.rules.IsDeceased(emp.Status):
		t = EventDeath
	case e.rules.IsRetirement(emp.Status):
		t = EventRetirement
	case e.rules.IsTermination(emp.Status):
		t = EventTermination
	default:
		return Event{}
	}
	if !emp.TerminationDate.Valid {
		return Event{}
	}
	return Event{Type: t, Date: emp.TerminationDate.Date.EndOfMonth()}
}

// employeeEvent returns the employee's own qualifying event if its
// termination date falls inside the window ending on asOf.
func (e *Engine) employeeEvent(emp source.Employee, asOf generic.Date) (Event, bool) {
	ev := e.Classify(emp, nil, false)
	if ev.Type == EventNone || !e.Window(asOf).ContainsNull(emp.TerminationDate) {
		return Event{}, false
	}
	return ev, true
}

package quota

import "strconv"

// LowUnitsThreshold is the balance below which a low-units alert fires.
const LowUnitsThreshold = 3.0

type Alert uint8

const (
	AlertNone          Alert = 0
	AlertLowUnits      Alert = 1
	AlertDaysExhausted Alert = 2
)

func (a Alert) Has(flag Alert) bool { return a&flag != 0 }

func (a Alert) String() string {
	switch a {
	case AlertNone:
		return "normal"
	case AlertLowUnits:
		return "low_units"
	case AlertDaysExhausted:
		return "days_exhausted"
	case AlertLowUnits | AlertDaysExhausted:
		return "low_units,days_exhausted"
	default:
		return "unknown"
	}
}

func CheckThresholds(st State) Alert {
	alert := AlertNone
	if st.RemainingUnits < LowUnitsThreshold {
		alert |= AlertLowUnits
	}
	if st.RemainingDays == 0 {
		alert |= AlertDaysExhausted
	}
	return alert
}

type EventKind string

const (
	EventUsageRecorded EventKind = "usage_recorded"
	EventLowUnits      EventKind = "low_units"
	EventDaysExhausted EventKind = "days_exhausted"
	EventReset         EventKind = "reset"
)

// Event is a notification produced by a state transition for the front end
// to surface.
type Event struct {
	Kind    EventKind
	Title   string
	Message string
	Units   float64
}

func (e Event) IsWarning() bool {
	return e.Kind == EventLowUnits || e.Kind == EventDaysExhausted
}

// ThresholdEvents reports every alert that holds for st, low units first.
func ThresholdEvents(st State) []Event {
	alert := CheckThresholds(st)
	var events []Event
	if alert.Has(AlertLowUnits) {
		events = append(events, Event{
			Kind:    EventLowUnits,
			Title:   "Low Units",
			Message: "Your remaining units are running low.",
		})
	}
	if alert.Has(AlertDaysExhausted) {
		events = append(events, Event{
			Kind:    EventDaysExhausted,
			Title:   "Daily Goal Exceeded",
			Message: "You have exceeded your daily usage goal.",
		})
	}
	return events
}

// FormatUnits renders a unit amount with the shortest decimal form that
// parses back to the same value.
func FormatUnits(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

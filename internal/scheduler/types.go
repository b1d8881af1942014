package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// dateLayout is the canonical textual form of a Date.
const dateLayout = "2006-01-02"

// ErrInvalidDate indicates a date string could not be parsed.
var ErrInvalidDate = errors.New("scheduler: invalid date")

// ErrInvalidTime indicates a time-of-day string could not be parsed.
var ErrInvalidTime = errors.New("scheduler: invalid time of day")

// Date is a civil calendar date in the facility time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(value string) (Date, error) {
	ts, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return DateOf(ts), nil
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(value string) Date {
	d, err := ParseDate(value)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns midnight of the date. UTC is used as a neutral anchor; all
// arithmetic stays within the single facility zone.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Weekday returns the day of week, Sunday == 0.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// AddDays returns the date n days later (or earlier when n is negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(dateLayout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a wall-clock time expressed as minutes after midnight.
type TimeOfDay int

const minutesPerDay = 24 * 60

var timeLayouts = []string{"15:04", "3:04 PM", "3:04PM", "15:04:05"}

// ParseTimeOfDay accepts "15:04", "3:04 PM" and "3:04PM".
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return TimeOfDay(ts.Hour()*60 + ts.Minute()), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
}

// MustParseTimeOfDay is ParseTimeOfDay for literals known to be valid.
func MustParseTimeOfDay(value string) TimeOfDay {
	t, err := ParseTimeOfDay(value)
	if err != nil {
		panic(err)
	}
	return t
}

// Clock builds a TimeOfDay from hour and minute.
func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// Valid reports whether t falls inside a single day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

// Add returns t shifted by the given number of minutes. The result may exceed
// a single day; callers combine it with a Date through At.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

// String renders the 24-hour storage form, e.g. "09:30".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Label renders the 12-hour display form used for slots, e.g. "9:00 AM".
func (t TimeOfDay) Label() string {
	return time.Date(2000, 1, 1, int(t)/60, int(t)%60, 0, 0, time.UTC).Format("3:04 PM")
}

// MarshalText implements encoding.TextMarshaler.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// At returns the absolute instant of the time of day on the given date.
func At(d Date, t TimeOfDay) time.Time {
	return d.Time().Add(time.Duration(t) * time.Minute)
}

// SessionType identifies the kind of professional-services session.
type SessionType string

const (
	SessionTypeIndividual SessionType = "individual"
	SessionTypeCouple     SessionType = "couple"
	SessionTypeGroup      SessionType = "group"
	SessionTypeInitial    SessionType = "initial"
)

var sessionDurations = map[SessionType]int{
	SessionTypeIndividual: 60,
	SessionTypeCouple:     90,
	SessionTypeGroup:      120,
	SessionTypeInitial:    30,
}

// ParseSessionType validates a session type string.
func ParseSessionType(value string) (SessionType, error) {
	st := SessionType(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := sessionDurations[st]; !ok {
		return "", fmt.Errorf("scheduler: unknown session type %q", value)
	}
	return st, nil
}

// Valid reports whether st is a known session type.
func (st SessionType) Valid() bool {
	_, ok := sessionDurations[st]
	return ok
}

// DurationMinutes returns the length of a session of this type.
func (st SessionType) DurationMinutes() int {
	return sessionDurations[st]
}

// RequestStatus is the lifecycle state of a SessionRequest.
type RequestStatus string

const (
	RequestPending     RequestStatus = "pending"
	RequestConfirmed   RequestStatus = "confirmed"
	RequestRescheduled RequestStatus = "rescheduled"
	RequestCancelled   RequestStatus = "cancelled"
	RequestCompleted   RequestStatus = "completed"
)

// RequestStatuses lists every request status in lifecycle order.
var RequestStatuses = []RequestStatus{RequestPending, RequestConfirmed, RequestRescheduled, RequestCancelled, RequestCompleted}

// ParseRequestStatus validates a request status string.
func ParseRequestStatus(value string) (RequestStatus, error) {
	status := RequestStatus(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range RequestStatuses {
		if status == known {
			return status, nil
		}
	}
	return "", fmt.Errorf("scheduler: unknown request status %q", value)
}

// SessionStatus is the lifecycle state of a ScheduledSession.
type SessionStatus string

const (
	SessionScheduled  SessionStatus = "scheduled"
	SessionInProgress SessionStatus = "in-progress"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
	SessionNoShow     SessionStatus = "no-show"
)

// SessionStatuses lists every session status.
var SessionStatuses = []SessionStatus{SessionScheduled, SessionInProgress, SessionCompleted, SessionCancelled, SessionNoShow}

// ParseSessionStatus validates a session status string.
func ParseSessionStatus(value string) (SessionStatus, error) {
	status := SessionStatus(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range SessionStatuses {
		if status == known {
			return status, nil
		}
	}
	return "", fmt.Errorf("scheduler: unknown session status %q", value)
}

// Member identifies an assigned staff member.
type Member struct {
	ID   string
	Name string
}

// Slot is a date plus a time of day.
type Slot struct {
	Date Date
	Time TimeOfDay
}

// Contact is the client contact snapshot carried by requests and sessions.
type Contact struct {
	Name  string
	Email string
	Phone string
}

// StatusChange is one entry of a request's audit history.
type StatusChange struct {
	From     RequestStatus `json:"from,omitempty"`
	To       RequestStatus `json:"to"`
	At       time.Time     `json:"at"`
	MemberID string        `json:"member_id,omitempty"`
	Note     string        `json:"note,omitempty"`
}

// SessionRequest is a client's ask for a session.
type SessionRequest struct {
	ID                 string
	Requester          Contact
	RequestedDate      Date
	RequestedTime      TimeOfDay
	Type               SessionType
	Notes              string
	Status             RequestStatus
	AssignedTo         *Member
	RescheduledTo      *Slot
	CancellationReason string
	ResponseMessage    string
	ResponseTemplateID string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ConfirmedAt        *time.Time
	CancelledAt        *time.Time
	CompletedAt        *time.Time
	History            []StatusChange
}

// EffectiveSlot returns where the request currently wants to be booked: the
// reschedule target when present, otherwise the originally requested slot.
func (r SessionRequest) EffectiveSlot() Slot {
	if r.RescheduledTo != nil {
		return *r.RescheduledTo
	}
	return Slot{Date: r.RequestedDate, Time: r.RequestedTime}
}

// Clone returns a deep copy of the request.
func (r SessionRequest) Clone() SessionRequest {
	out := r
	if r.AssignedTo != nil {
		m := *r.AssignedTo
		out.AssignedTo = &m
	}
	if r.RescheduledTo != nil {
		s := *r.RescheduledTo
		out.RescheduledTo = &s
	}
	out.ConfirmedAt = cloneTime(r.ConfirmedAt)
	out.CancelledAt = cloneTime(r.CancelledAt)
	out.CompletedAt = cloneTime(r.CompletedAt)
	if r.History != nil {
		out.History = append([]StatusChange(nil), r.History...)
	}
	return out
}

// ScheduledSession is a committed calendar entry.
type ScheduledSession struct {
	ID                 string
	RequestID          string
	Client             Contact
	Date               Date
	Time               TimeOfDay
	DurationMinutes    int
	Type               SessionType
	Status             SessionStatus
	Member             Member
	MeetingLink        string
	RecordingURL       string
	CancellationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CancelledAt        *time.Time
}

// Start returns the absolute start instant.
func (s ScheduledSession) Start() time.Time {
	return At(s.Date, s.Time)
}

// End returns the exclusive end instant.
func (s ScheduledSession) End() time.Time {
	return s.Start().Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// Clone returns a deep copy of the session.
func (s ScheduledSession) Clone() ScheduledSession {
	out := s
	out.CancelledAt = cloneTime(s.CancelledAt)
	return out
}

// Availability is a recurring weekly availability rule for a staff member.
type Availability struct {
	ID                string
	Member            Member
	DayOfWeek         time.Weekday
	Start             TimeOfDay
	End               TimeOfDay
	IsAvailable       bool
	MaxSessionsPerDay int
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

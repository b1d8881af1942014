package http

import (
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/application"
	"github.com/example/session-scheduler/internal/scheduler"
)

type memberDTO struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type statusChangeDTO struct {
	From     string    `json:"from,omitempty"`
	To       string    `json:"to"`
	At       time.Time `json:"at"`
	MemberID string    `json:"member_id,omitempty"`
	Note     string    `json:"note,omitempty"`
}

type requestDTO struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Email              string            `json:"email"`
	Phone              string            `json:"phone,omitempty"`
	Date               string            `json:"date"`
	Time               string            `json:"time"`
	Type               string            `json:"type"`
	Notes              string            `json:"notes,omitempty"`
	Status             string            `json:"status"`
	AssignedTo         *memberDTO        `json:"assigned_to,omitempty"`
	RescheduledDate    string            `json:"rescheduled_date,omitempty"`
	RescheduledTime    string            `json:"rescheduled_time,omitempty"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
	ResponseMessage    string            `json:"response_message,omitempty"`
	ResponseTemplateID string            `json:"response_template_id,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	ConfirmedAt        *time.Time        `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	History            []statusChangeDTO `json:"history"`
}

func toRequestDTO(r scheduler.SessionRequest) requestDTO {
	dto := requestDTO{
		ID:                 r.ID,
		Name:               r.Requester.Name,
		Email:              r.Requester.Email,
		Phone:              r.Requester.Phone,
		Date:               r.RequestedDate.String(),
		Time:               r.RequestedTime.String(),
		Type:               string(r.Type),
		Notes:              r.Notes,
		Status:             string(r.Status),
		CancellationReason: r.CancellationReason,
		ResponseMessage:    r.ResponseMessage,
		ResponseTemplateID: r.ResponseTemplateID,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		ConfirmedAt:        r.ConfirmedAt,
		CancelledAt:        r.CancelledAt,
		CompletedAt:        r.CompletedAt,
		History:            make([]statusChangeDTO, 0, len(r.History)),
	}
	if r.AssignedTo != nil {
		dto.AssignedTo = &memberDTO{ID: r.AssignedTo.ID, Name: r.AssignedTo.Name}
	}
	if r.RescheduledTo != nil {
		dto.RescheduledDate = r.RescheduledTo.Date.String()
		dto.RescheduledTime = r.RescheduledTo.Time.String()
	}
	for _, change := range r.History {
		dto.History = append(dto.History, statusChangeDTO{
			From:     string(change.From),
			To:       string(change.To),
			At:       change.At,
			MemberID: change.MemberID,
			Note:     change.Note,
		})
	}
	return dto
}

type sessionDTO struct {
	ID                 string     `json:"id"`
	RequestID          string     `json:"request_id"`
	ClientName         string     `json:"client_name"`
	ClientEmail        string     `json:"client_email"`
	ClientPhone        string     `json:"client_phone,omitempty"`
	Date               string     `json:"date"`
	Time               string     `json:"time"`
	DurationMinutes    int        `json:"duration_minutes"`
	Type               string     `json:"type"`
	Status             string     `json:"status"`
	Member             memberDTO  `json:"member"`
	MeetingLink        string     `json:"meeting_link,omitempty"`
	RecordingURL       string     `json:"recording_url,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
}

func toSessionDTO(s scheduler.ScheduledSession) sessionDTO {
	return sessionDTO{
		ID:                 s.ID,
		RequestID:          s.RequestID,
		ClientName:         s.Client.Name,
		ClientEmail:        s.Client.Email,
		ClientPhone:        s.Client.Phone,
		Date:               s.Date.String(),
		Time:               s.Time.String(),
		DurationMinutes:    s.DurationMinutes,
		Type:               string(s.Type),
		Status:             string(s.Status),
		Member:             memberDTO{ID: s.Member.ID, Name: s.Member.Name},
		MeetingLink:        s.MeetingLink,
		RecordingURL:       s.RecordingURL,
		CancellationReason: s.CancellationReason,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
		CancelledAt:        s.CancelledAt,
	}
}

type availabilityDTO struct {
	ID                string    `json:"id"`
	Member            memberDTO `json:"member"`
	DayOfWeek         int       `json:"day_of_week"`
	StartTime         string    `json:"start_time"`
	EndTime           string    `json:"end_time"`
	IsAvailable       bool      `json:"is_available"`
	MaxSessionsPerDay int       `json:"max_sessions_per_day"`
}

func toAvailabilityDTO(a scheduler.Availability) availabilityDTO {
	return availabilityDTO{
		ID:                a.ID,
		Member:            memberDTO{ID: a.Member.ID, Name: a.Member.Name},
		DayOfWeek:         int(a.DayOfWeek),
		StartTime:         a.Start.String(),
		EndTime:           a.End.String(),
		IsAvailable:       a.IsAvailable,
		MaxSessionsPerDay: a.MaxSessionsPerDay,
	}
}

func mapSlice[T, D any](items []T, convert func(T) D) []D {
	out := make([]D, 0, len(items))
	for _, item := range items {
		out = append(out, convert(item))
	}
	return out
}

// parseSlot converts wire date and time strings, reporting both problems at once.
func parseSlot(dateText, timeText string) (scheduler.Date, scheduler.TimeOfDay, error) {
	fields := map[string]string{}
	date, err := parseDateField(dateText)
	if err != nil {
		fields["date"] = err.Error()
	}
	at, err := scheduler.ParseTimeOfDay(timeText)
	if err != nil {
		fields["time"] = "time must be formatted as HH:MM or H:MM AM"
	}
	if len(fields) > 0 {
		return date, at, &application.ValidationError{FieldErrors: fields}
	}
	return date, at, nil
}

type fieldMessage string

func (m fieldMessage) Error() string { return string(m) }

func parseDateField(text string) (scheduler.Date, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return scheduler.Date{}, fieldMessage("date is required")
	}
	date, err := scheduler.ParseDate(text)
	if err != nil {
		return scheduler.Date{}, fieldMessage("date must be formatted as YYYY-MM-DD")
	}
	return date, nil
}

func fieldValidation(field, message string) error {
	return &application.ValidationError{FieldErrors: map[string]string{field: message}}
}

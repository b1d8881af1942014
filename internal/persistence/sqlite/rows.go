package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/session-scheduler/internal/scheduler"
)

const timestampLayout = time.RFC3339Nano

type requestRow struct {
	ID                 string         `db:"id"`
	RequesterName      string         `db:"requester_name"`
	RequesterEmail     string         `db:"requester_email"`
	RequesterPhone     string         `db:"requester_phone"`
	RequestedDate      string         `db:"requested_date"`
	RequestedTime      string         `db:"requested_time"`
	SessionType        string         `db:"session_type"`
	Notes              string         `db:"notes"`
	Status             string         `db:"status"`
	AssignedMemberID   sql.NullString `db:"assigned_member_id"`
	AssignedMemberName sql.NullString `db:"assigned_member_name"`
	RescheduledDate    sql.NullString `db:"rescheduled_date"`
	RescheduledTime    sql.NullString `db:"rescheduled_time"`
	CancellationReason string         `db:"cancellation_reason"`
	ResponseMessage    string         `db:"response_message"`
	ResponseTemplateID string         `db:"response_template_id"`
	History            string         `db:"history"`
	CreatedAt          string         `db:"created_at"`
	UpdatedAt          string         `db:"updated_at"`
	ConfirmedAt        sql.NullString `db:"confirmed_at"`
	CancelledAt        sql.NullString `db:"cancelled_at"`
	CompletedAt        sql.NullString `db:"completed_at"`
}

const requestColumns = `id, requester_name, requester_email, requester_phone, requested_date, requested_time,
	session_type, notes, status, assigned_member_id, assigned_member_name, rescheduled_date, rescheduled_time,
	cancellation_reason, response_message, response_template_id, history, created_at, updated_at,
	confirmed_at, cancelled_at, completed_at`

func newRequestRow(r scheduler.SessionRequest) (requestRow, error) {
	history := r.History
	if history == nil {
		history = []scheduler.StatusChange{}
	}
	encoded, err := json.Marshal(history)
	if err != nil {
		return requestRow{}, fmt.Errorf("encode history: %w", err)
	}

	row := requestRow{
		ID:                 r.ID,
		RequesterName:      r.Requester.Name,
		RequesterEmail:     r.Requester.Email,
		RequesterPhone:     r.Requester.Phone,
		RequestedDate:      r.RequestedDate.String(),
		RequestedTime:      r.RequestedTime.String(),
		SessionType:        string(r.Type),
		Notes:              r.Notes,
		Status:             string(r.Status),
		CancellationReason: r.CancellationReason,
		ResponseMessage:    r.ResponseMessage,
		ResponseTemplateID: r.ResponseTemplateID,
		History:            string(encoded),
		CreatedAt:          formatTime(r.CreatedAt),
		UpdatedAt:          formatTime(r.UpdatedAt),
		ConfirmedAt:        nullTime(r.ConfirmedAt),
		CancelledAt:        nullTime(r.CancelledAt),
		CompletedAt:        nullTime(r.CompletedAt),
	}
	if r.AssignedTo != nil {
		row.AssignedMemberID = sql.NullString{String: r.AssignedTo.ID, Valid: true}
		row.AssignedMemberName = sql.NullString{String: r.AssignedTo.Name, Valid: true}
	}
	if r.RescheduledTo != nil {
		row.RescheduledDate = sql.NullString{String: r.RescheduledTo.Date.String(), Valid: true}
		row.RescheduledTime = sql.NullString{String: r.RescheduledTo.Time.String(), Valid: true}
	}
	return row, nil
}

func (row requestRow) toDomain() (scheduler.SessionRequest, error) {
	var (
		r   scheduler.SessionRequest
		err error
	)
	r.ID = row.ID
	r.Requester = scheduler.Contact{Name: row.RequesterName, Email: row.RequesterEmail, Phone: row.RequesterPhone}
	r.Notes = row.Notes
	r.CancellationReason = row.CancellationReason
	r.ResponseMessage = row.ResponseMessage
	r.ResponseTemplateID = row.ResponseTemplateID

	if r.RequestedDate, err = scheduler.ParseDate(row.RequestedDate); err != nil {
		return r, err
	}
	if r.RequestedTime, err = scheduler.ParseTimeOfDay(row.RequestedTime); err != nil {
		return r, err
	}
	if r.Type, err = scheduler.ParseSessionType(row.SessionType); err != nil {
		return r, err
	}
	if r.Status, err = scheduler.ParseRequestStatus(row.Status); err != nil {
		return r, err
	}
	if row.AssignedMemberID.Valid {
		r.AssignedTo = &scheduler.Member{ID: row.AssignedMemberID.String, Name: row.AssignedMemberName.String}
	}
	if row.RescheduledDate.Valid && row.RescheduledTime.Valid {
		slot := scheduler.Slot{}
		if slot.Date, err = scheduler.ParseDate(row.RescheduledDate.String); err != nil {
			return r, err
		}
		if slot.Time, err = scheduler.ParseTimeOfDay(row.RescheduledTime.String); err != nil {
			return r, err
		}
		r.RescheduledTo = &slot
	}
	if err = json.Unmarshal([]byte(row.History), &r.History); err != nil {
		return r, fmt.Errorf("decode history: %w", err)
	}
	if r.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return r, err
	}
	if r.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return r, err
	}
	if r.ConfirmedAt, err = parseNullTime(row.ConfirmedAt); err != nil {
		return r, err
	}
	if r.CancelledAt, err = parseNullTime(row.CancelledAt); err != nil {
		return r, err
	}
	if r.CompletedAt, err = parseNullTime(row.CompletedAt); err != nil {
		return r, err
	}
	return r, nil
}

type sessionRow struct {
	ID                 string         `db:"id"`
	RequestID          string         `db:"request_id"`
	ClientName         string         `db:"client_name"`
	ClientEmail        string         `db:"client_email"`
	ClientPhone        string         `db:"client_phone"`
	SessionDate        string         `db:"session_date"`
	SessionTime        string         `db:"session_time"`
	DurationMinutes    int            `db:"duration_minutes"`
	SessionType        string         `db:"session_type"`
	Status             string         `db:"status"`
	MemberID           string         `db:"member_id"`
	MemberName         string         `db:"member_name"`
	MeetingLink        string         `db:"meeting_link"`
	RecordingURL       string         `db:"recording_url"`
	CancellationReason string         `db:"cancellation_reason"`
	CreatedAt          string         `db:"created_at"`
	UpdatedAt          string         `db:"updated_at"`
	CancelledAt        sql.NullString `db:"cancelled_at"`
}

const sessionColumns = `id, request_id, client_name, client_email, client_phone, session_date, session_time,
	duration_minutes, session_type, status, member_id, member_name, meeting_link, recording_url,
	cancellation_reason, created_at, updated_at, cancelled_at`

func newSessionRow(s scheduler.ScheduledSession) sessionRow {
	return sessionRow{
		ID:                 s.ID,
		RequestID:          s.RequestID,
		ClientName:         s.Client.Name,
		ClientEmail:        s.Client.Email,
		ClientPhone:        s.Client.Phone,
		SessionDate:        s.Date.String(),
		SessionTime:        s.Time.String(),
		DurationMinutes:    s.DurationMinutes,
		SessionType:        string(s.Type),
		Status:             string(s.Status),
		MemberID:           s.Member.ID,
		MemberName:         s.Member.Name,
		MeetingLink:        s.MeetingLink,
		RecordingURL:       s.RecordingURL,
		CancellationReason: s.CancellationReason,
		CreatedAt:          formatTime(s.CreatedAt),
		UpdatedAt:          formatTime(s.UpdatedAt),
		CancelledAt:        nullTime(s.CancelledAt),
	}
}

func (row sessionRow) toDomain() (scheduler.ScheduledSession, error) {
	var (
		s   scheduler.ScheduledSession
		err error
	)
	s.ID = row.ID
	s.RequestID = row.RequestID
	s.Client = scheduler.Contact{Name: row.ClientName, Email: row.ClientEmail, Phone: row.ClientPhone}
	s.DurationMinutes = row.DurationMinutes
	s.Member = scheduler.Member{ID: row.MemberID, Name: row.MemberName}
	s.MeetingLink = row.MeetingLink
	s.RecordingURL = row.RecordingURL
	s.CancellationReason = row.CancellationReason

	if s.Date, err = scheduler.ParseDate(row.SessionDate); err != nil {
		return s, err
	}
	if s.Time, err = scheduler.ParseTimeOfDay(row.SessionTime); err != nil {
		return s, err
	}
	if s.Type, err = scheduler.ParseSessionType(row.SessionType); err != nil {
		return s, err
	}
	if s.Status, err = scheduler.ParseSessionStatus(row.Status); err != nil {
		return s, err
	}
	if s.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return s, err
	}
	if s.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return s, err
	}
	if s.CancelledAt, err = parseNullTime(row.CancelledAt); err != nil {
		return s, err
	}
	return s, nil
}

type availabilityRow struct {
	ID                string `db:"id"`
	MemberID          string `db:"member_id"`
	MemberName        string `db:"member_name"`
	DayOfWeek         int    `db:"day_of_week"`
	StartTime         string `db:"start_time"`
	EndTime           string `db:"end_time"`
	IsAvailable       bool   `db:"is_available"`
	MaxSessionsPerDay int    `db:"max_sessions_per_day"`
}

func newAvailabilityRow(a scheduler.Availability) availabilityRow {
	return availabilityRow{
		ID:                a.ID,
		MemberID:          a.Member.ID,
		MemberName:        a.Member.Name,
		DayOfWeek:         int(a.DayOfWeek),
		StartTime:         a.Start.String(),
		EndTime:           a.End.String(),
		IsAvailable:       a.IsAvailable,
		MaxSessionsPerDay: a.MaxSessionsPerDay,
	}
}

func (row availabilityRow) toDomain() (scheduler.Availability, error) {
	start, err := scheduler.ParseTimeOfDay(row.StartTime)
	if err != nil {
		return scheduler.Availability{}, err
	}
	end, err := scheduler.ParseTimeOfDay(row.EndTime)
	if err != nil {
		return scheduler.Availability{}, err
	}
	return scheduler.Availability{
		ID:                row.ID,
		Member:            scheduler.Member{ID: row.MemberID, Name: row.MemberName},
		DayOfWeek:         time.Weekday(row.DayOfWeek),
		Start:             start,
		End:               end,
		IsAvailable:       row.IsAvailable,
		MaxSessionsPerDay: row.MaxSessionsPerDay,
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t, nil
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

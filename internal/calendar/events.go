// Package calendar turns Google Calendar events into attendee batches.
package calendar

import (
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
)

// Platforms detected from conference data or the event location.
const (
	PlatformGoogleMeet = "google-meet"
	PlatformZoom       = "zoom"
	PlatformTeams      = "teams"
)

// Skip reasons reported by Convert.
const (
	SkipNil          = "nil event"
	SkipNoStart      = "missing start time"
	SkipAllDay       = "all-day event"
	SkipCancelled    = "cancelled"
	SkipNoAttendees  = "no attendees"
	SkipBadStartTime = "unparseable start time"
)

// Result is the attendee batch built from a page of events.
type Result struct {
	Attendees []entity.Attendee
	Events    int
	Skipped   map[string]int
}

// Convert flattens the attendees of timed, non-cancelled events. Resource calendars
// (rooms) and attendees without an email are dropped.
func Convert(events []*gcal.Event) Result {
	res := Result{Attendees: make([]entity.Attendee, 0), Skipped: make(map[string]int)}

	for _, event := range events {
		if reason, skip := skipReason(event); skip {
			res.Skipped[reason]++
			continue
		}

		start, err := time.Parse(time.RFC3339, event.Start.DateTime)
		if err != nil {
			res.Skipped[SkipBadStartTime]++
			continue
		}
		start = start.UTC()
		platform := detectPlatform(event)

		added := 0
		for _, a := range event.Attendees {
			if a == nil || a.Resource || strings.TrimSpace(a.Email) == "" {
				continue
			}
			res.Attendees = append(res.Attendees, entity.Attendee{
				MeetingID:       event.Id,
				MeetingTitle:    strings.TrimSpace(event.Summary),
				MeetingDateTime: &start,
				Email:           a.Email,
				DisplayName:     strings.TrimSpace(a.DisplayName),
				ResponseStatus:  a.ResponseStatus,
				IsOrganizer:     a.Organizer,
				IsOptional:      a.Optional,
				Platform:        platform,
			})
			added++
		}
		if added == 0 {
			res.Skipped[SkipNoAttendees]++
			continue
		}
		res.Events++
	}
	return res
}

func skipReason(event *gcal.Event) (string, bool) {
	switch {
	case event == nil:
		return SkipNil, true
	case event.Start == nil:
		return SkipNoStart, true
	case event.Start.Date != "" && event.Start.DateTime == "":
		return SkipAllDay, true
	case event.Status == "cancelled":
		return SkipCancelled, true
	case len(event.Attendees) == 0:
		return SkipNoAttendees, true
	}
	return "", false
}

func detectPlatform(event *gcal.Event) string {
	if event.ConferenceData != nil && event.ConferenceData.ConferenceSolution != nil &&
		event.ConferenceData.ConferenceSolution.Key != nil {
		switch event.ConferenceData.ConferenceSolution.Key.Type {
		case "hangoutsMeet":
			return PlatformGoogleMeet
		case "addOn":
			name := strings.ToLower(event.ConferenceData.ConferenceSolution.Name)
			if strings.Contains(name, "zoom") {
				return PlatformZoom
			}
			if strings.Contains(name, "teams") {
				return PlatformTeams
			}
		}
	}

	location := strings.ToLower(event.Location + " " + event.Description)
	switch {
	case event.HangoutLink != "":
		return PlatformGoogleMeet
	case strings.Contains(location, "zoom.us"):
		return PlatformZoom
	case strings.Contains(location, "teams.microsoft.com"):
		return PlatformTeams
	}
	return PlatformGoogleMeet
}

// Package ics serializes dashboard events to iCalendar for use in other
// calendar applications.
package ics

import (
	"io"
	"time"

	"github.com/emersion/go-ical"

	"tabdash/internal/provider"
)

const productID = "-//tabdash//EN"

// WriteEvents encodes events as a VCALENDAR stream.
func WriteEvents(w io.Writer, events []provider.Event, now time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, e := range events {
		cal.Children = append(cal.Children, toComponent(e, now))
	}

	return ical.NewEncoder(w).Encode(cal)
}

// toComponent converts an event to a VEVENT component.
func toComponent(e provider.Event, now time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, e.ID)
	ve.Props.SetText(ical.PropSummary, e.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, e.Start)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, e.End)
	if e.Description != "" {
		ve.Props.SetText(ical.PropDescription, e.Description)
	}
	if e.Location != "" {
		ve.Props.SetText(ical.PropLocation, e.Location)
	}
	if e.MeetLink != "" {
		ve.Props.SetText(ical.PropURL, e.MeetLink)
	}
	return ve
}

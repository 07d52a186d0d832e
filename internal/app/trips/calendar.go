package trips

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
)

const icalDate = "20060102"

var unsafeFileChars = regexp.MustCompile(`[^a-z0-9]`)

// Calendar is an iCalendar export of a trip.
type Calendar struct {
	Filename string
	Body     string
}

// ExportCalendar renders the trip's itinerary as one all-day event per city.
func (s *Service) ExportCalendar(ctx context.Context, caller domain.UserID, tripID domain.TripID) (Calendar, error) {
	t, err := s.requireMember(ctx, tripID, caller)
	if err != nil {
		return Calendar{}, err
	}
	return Calendar{
		Filename: unsafeFileChars.ReplaceAllString(strings.ToLower(t.Name), "-") + ".ics",
		Body:     renderCalendar(t),
	}, nil
}

func renderCalendar(t domain.Trip) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//TripLink//Trip Export//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}
	for i, c := range t.Cities {
		end := c.ArriveDate.AddDate(0, 0, 1)
		if c.DepartDate != nil {
			end = *c.DepartDate
		}
		desc := fmt.Sprintf("Stop %d of %d on your trip \"%s\"", i+1, len(t.Cities), t.Name)
		if len(c.Activities) > 0 {
			desc += "\n\nActivities:"
			for _, a := range c.Activities {
				desc += "\n- " + a.Name
			}
		}
		lines = append(lines,
			"BEGIN:VEVENT",
			fmt.Sprintf("UID:%s-%s@triplink", t.ID, c.ID),
			"DTSTART;VALUE=DATE:"+c.ArriveDate.Format(icalDate),
			"DTEND;VALUE=DATE:"+end.Format(icalDate),
			"SUMMARY:"+escapeICalText(t.Name+": "+c.Name),
			"LOCATION:"+escapeICalText(c.Name+", "+c.Country),
			"DESCRIPTION:"+escapeICalText(desc),
			"END:VEVENT",
		)
	}
	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, "\r\n")
}

var icalEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

func escapeICalText(s string) string { return icalEscaper.Replace(s) }

package radikoapi

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sorabito/timefree/telemetry"
)

// Program is an immutable snapshot of one schedule entry. Start and
// End are the protocol's 14-digit YYYYMMDDHHmmss timestamps.
type Program struct {
	ID          string
	Title       string
	Start       string
	End         string
	ImageURL    string
	Performers  string
	StationID   string
	StationName string
}

// unknownField is the sentinel for station id/name missing from a
// guide document root.
const unknownField = "unknown"

const timestampLen = 14

// ParseTimestamp parses a 14-digit YYYYMMDDHHmmss timestamp in local
// time. Malformed input fails with ParseError instead of silently
// yielding a zero value.
func ParseTimestamp(s string) (time.Time, error) {
	if len(s) != timestampLen {
		return time.Time{}, &ParseError{Doc: "timestamp", Err: fmt.Errorf("want %d digits, got %d (%q)", timestampLen, len(s), s)}
	}
	t, err := time.ParseInLocation("20060102150405", s, time.Local)
	if err != nil {
		return time.Time{}, &ParseError{Doc: "timestamp", Err: err}
	}
	return t, nil
}

type guideDoc struct {
	XMLName xml.Name `xml:"radiko"`
	Station struct {
		ID    string `xml:"id,attr"`
		Name  string `xml:"name"`
		Progs []struct {
			ID         string `xml:"id,attr"`
			Start      string `xml:"ft,attr"`
			End        string `xml:"to,attr"`
			Title      string `xml:"title"`
			Image      string `xml:"img"`
			Performers string `xml:"pfm"`
		} `xml:"progs>prog"`
	} `xml:"stations>station"`
}

// parseGuide decodes a program-guide document. Station id/name come
// from the document root once, defaulting to the "unknown" sentinel;
// a guide with zero schedule entries is an empty slice, not an error.
func parseGuide(body []byte) ([]Program, error) {
	var doc guideDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, &ParseError{Doc: "program guide", Err: err}
	}
	stationID := doc.Station.ID
	if stationID == "" {
		stationID = unknownField
	}
	stationName := doc.Station.Name
	if stationName == "" {
		stationName = unknownField
	}
	out := make([]Program, 0, len(doc.Station.Progs))
	for _, p := range doc.Station.Progs {
		out = append(out, Program{
			ID:          p.ID,
			Title:       p.Title,
			Start:       p.Start,
			End:         p.End,
			ImageURL:    p.Image,
			Performers:  p.Performers,
			StationID:   stationID,
			StationName: stationName,
		})
	}
	return out, nil
}

// Programs returns the schedule for one station and date (YYYYMMDD),
// cache-first. A fresh cache entry is served without any network
// call; on fetch failure a stale entry is served instead when one is
// usable; cache write failures are logged and never fail the call.
func (c *Client) Programs(ctx context.Context, stationID, date string) ([]Program, error) {
	ctx, span := telemetry.StartSpan(ctx, "radikoapi", "programs")
	defer span.End()

	var stale []byte
	if body, fresh := c.Cache.Load(stationID, date); body != nil {
		if fresh {
			if progs, err := parseGuide(body); err == nil {
				telemetry.IncCacheHit()
				return progs, nil
			}
			// A fresh entry that no longer parses is treated like the
			// read-failure case: a miss, refetched below.
			slog.Warn("cached guide failed to parse, refetching",
				slog.String("station", stationID), slog.String("date", date))
		} else {
			stale = body
		}
	}
	telemetry.IncCacheMiss()

	url := fmt.Sprintf("%s/v3/program/station/date/%s/%s.xml", c.baseURL(), date, stationID)
	body, err := c.get(ctx, url)
	telemetry.IncGuideFetch()
	if err != nil {
		if stale != nil {
			if progs, perr := parseGuide(stale); perr == nil {
				slog.Warn("guide fetch failed, serving stale cache",
					slog.String("station", stationID), slog.String("date", date), slog.Any("err", err))
				return progs, nil
			}
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	progs, err := parseGuide(body)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := c.Cache.Store(stationID, date, body); err != nil {
		slog.Warn("guide cache write failed",
			slog.String("station", stationID), slog.String("date", date), slog.Any("err", err))
	}
	return progs, nil
}

// FindProgram selects a program by exact 14-digit start timestamp or,
// when start is empty, by case-insensitive title substring. It returns
// false when nothing matches.
func FindProgram(progs []Program, start, titleSubstr string) (Program, bool) {
	for _, p := range progs {
		if start != "" {
			if p.Start == start {
				return p, true
			}
			continue
		}
		if titleSubstr != "" && strings.Contains(strings.ToLower(p.Title), strings.ToLower(titleSubstr)) {
			return p, true
		}
	}
	return Program{}, false
}

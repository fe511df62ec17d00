package radikoapi

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
)

// Station is one broadcaster in an area's station list. Order follows
// the source document.
type Station struct {
	ID   string
	Name string
}

type stationListDoc struct {
	XMLName  xml.Name `xml:"stations"`
	Stations []struct {
		ID   string `xml:"id"`
		Name string `xml:"name"`
	} `xml:"station"`
}

// Stations fetches the station list for an area. An explicit areaID
// wins over the one stored by Authenticate; with neither, the call
// fails with ConfigError.
func (c *Client) Stations(ctx context.Context, areaID string) ([]Station, error) {
	if areaID == "" {
		if c.auth == nil || c.auth.AreaID == "" {
			return nil, &ConfigError{Reason: "no area id: pass one explicitly or authenticate first"}
		}
		areaID = c.auth.AreaID
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/v3/station/list/%s.xml", c.baseURL(), areaID))
	if err != nil {
		return nil, err
	}

	var doc stationListDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, &ParseError{Doc: "station list", Err: err}
	}
	out := make([]Station, 0, len(doc.Stations))
	for _, s := range doc.Stations {
		out = append(out, Station{ID: s.ID, Name: s.Name})
	}
	return out, nil
}

// get issues a GET and returns the body, mapping transport failures
// and non-2xx statuses to NetworkError.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{URL: url, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	return body, nil
}

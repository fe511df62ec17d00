package radikoapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const stationListTwo = `<?xml version="1.0" encoding="UTF-8"?>
<stations area_id="JP13" area_name="TOKYO JAPAN">
  <station><id>TBS</id><name>TBS RADIO</name></station>
  <station><id>QRR</id><name>BUNKA HOSO</name></station>
</stations>`

const stationListOne = `<?xml version="1.0" encoding="UTF-8"?>
<stations area_id="JP01" area_name="HOKKAIDO JAPAN">
  <station><id>HBC</id><name>HBC RADIO</name></station>
</stations>`

func stationListServer(t *testing.T, docs map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for area, doc := range docs {
			if r.URL.Path == fmt.Sprintf("/v3/station/list/%s.xml", area) {
				_, _ = w.Write([]byte(doc))
				return
			}
		}
		http.NotFound(w, r)
	}))
}

func TestStationsDocumentOrder(t *testing.T) {
	srv := stationListServer(t, map[string]string{"JP13": stationListTwo})
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	stations, err := c.Stations(context.Background(), "JP13")
	if err != nil {
		t.Fatalf("stations: %v", err)
	}
	want := []Station{{ID: "TBS", Name: "TBS RADIO"}, {ID: "QRR", Name: "BUNKA HOSO"}}
	if len(stations) != len(want) {
		t.Fatalf("got %d stations, want %d", len(stations), len(want))
	}
	for i := range want {
		if stations[i] != want[i] {
			t.Errorf("stations[%d] = %+v, want %+v", i, stations[i], want[i])
		}
	}
}

func TestStationsSingletonList(t *testing.T) {
	srv := stationListServer(t, map[string]string{"JP01": stationListOne})
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	stations, err := c.Stations(context.Background(), "JP01")
	if err != nil {
		t.Fatalf("stations: %v", err)
	}
	if len(stations) != 1 {
		t.Fatalf("got %d stations, want a one-element list", len(stations))
	}
	if stations[0].ID != "HBC" {
		t.Errorf("stations[0].ID = %q, want HBC", stations[0].ID)
	}
}

func TestStationsAreaResolution(t *testing.T) {
	srv := stationListServer(t, map[string]string{
		"JP13": stationListTwo,
		"JP01": stationListOne,
	})
	defer srv.Close()

	t.Run("explicit area wins over stored auth", func(t *testing.T) {
		c := &Client{BaseURL: srv.URL}
		c.auth = &AuthContext{Token: "tok", AreaID: "JP13"}
		stations, err := c.Stations(context.Background(), "JP01")
		if err != nil {
			t.Fatalf("stations: %v", err)
		}
		if len(stations) != 1 || stations[0].ID != "HBC" {
			t.Errorf("explicit area not honored: %+v", stations)
		}
	})

	t.Run("stored auth area used when no explicit area", func(t *testing.T) {
		c := &Client{BaseURL: srv.URL}
		c.auth = &AuthContext{Token: "tok", AreaID: "JP13"}
		stations, err := c.Stations(context.Background(), "")
		if err != nil {
			t.Fatalf("stations: %v", err)
		}
		if len(stations) != 2 {
			t.Errorf("got %d stations, want 2", len(stations))
		}
	})

	t.Run("no area anywhere fails with ConfigError", func(t *testing.T) {
		c := &Client{BaseURL: srv.URL}
		_, err := c.Stations(context.Background(), "")
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("err = %v, want ConfigError", err)
		}
	})
}

func TestStationsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	_, err := c.Stations(context.Background(), "JP13")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v, want NetworkError", err)
	}
	if netErr.Status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", netErr.Status)
	}
}

func TestStationsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<stations><station><id>TBS"))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	_, err := c.Stations(context.Background(), "JP13")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v, want ParseError", err)
	}
}

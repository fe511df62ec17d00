package config

import (
	"reflect"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so ambient environment
// never leaks into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"RADIKO_AREA_ID", "RADIKO_STATION_ID", "RADIKO_STATIONS",
		"RADIKO_DATE", "RADIKO_PROGRAM_START", "RADIKO_PROGRAM_TITLE",
		"CACHE_DIR", "OUTPUT_DIR", "FFMPEG_PATH", "DB_DSN", "HTTP_ADDR",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Date != time.Now().Format("20060102") {
		t.Errorf("date = %q, want today", cfg.Date)
	}
	if cfg.CacheDir != "cache" {
		t.Errorf("cache dir = %q, want cache", cfg.CacheDir)
	}
	if cfg.OutputDir != "output" {
		t.Errorf("output dir = %q, want output", cfg.OutputDir)
	}
	if cfg.FFmpegPath != "ffmpeg" {
		t.Errorf("ffmpeg path = %q, want ffmpeg", cfg.FFmpegPath)
	}
	if cfg.DBDsn != "" || cfg.HTTPAddr != "" {
		t.Error("optional features enabled without env")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RADIKO_AREA_ID", "JP13")
	t.Setenv("RADIKO_STATION_ID", "TBS")
	t.Setenv("RADIKO_STATIONS", "TBS, QRR ,,LFR")
	t.Setenv("RADIKO_DATE", "20260823")
	t.Setenv("RADIKO_PROGRAM_START", "20260823050000")
	t.Setenv("RADIKO_PROGRAM_TITLE", "Morning")
	t.Setenv("CACHE_DIR", "/var/cache/radiko")
	t.Setenv("OUTPUT_DIR", "/srv/recordings")
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("DB_DSN", "postgres://localhost/radiko")
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AreaID != "JP13" || cfg.StationID != "TBS" {
		t.Errorf("selection = %q/%q", cfg.AreaID, cfg.StationID)
	}
	if want := []string{"TBS", "QRR", "LFR"}; !reflect.DeepEqual(cfg.Stations, want) {
		t.Errorf("stations = %v, want %v", cfg.Stations, want)
	}
	if cfg.Date != "20260823" || cfg.ProgramStart != "20260823050000" || cfg.ProgramTitle != "Morning" {
		t.Errorf("program selector = %q/%q/%q", cfg.Date, cfg.ProgramStart, cfg.ProgramTitle)
	}
	if cfg.CacheDir != "/var/cache/radiko" || cfg.OutputDir != "/srv/recordings" {
		t.Errorf("storage = %q/%q", cfg.CacheDir, cfg.OutputDir)
	}
	if cfg.FFmpegPath != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("ffmpeg path = %q", cfg.FFmpegPath)
	}
	if cfg.DBDsn == "" || cfg.HTTPAddr != ":9090" {
		t.Errorf("optional features = %q/%q", cfg.DBDsn, cfg.HTTPAddr)
	}
}

func TestLoadRejectsMalformedSelectors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"short date", "RADIKO_DATE", "2026823"},
		{"long date", "RADIKO_DATE", "202608230"},
		{"short start", "RADIKO_PROGRAM_START", "202608230500"},
		{"long start", "RADIKO_PROGRAM_START", "2026082305000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("%s=%q: want error", tt.key, tt.value)
			}
		})
	}
}

func TestValidateRecordReady(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"start selector", Config{StationID: "TBS", ProgramStart: "20260823050000"}, false},
		{"title selector", Config{StationID: "TBS", ProgramTitle: "Morning"}, false},
		{"no station", Config{ProgramTitle: "Morning"}, true},
		{"no selector", Config{StationID: "TBS"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateRecordReady()
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

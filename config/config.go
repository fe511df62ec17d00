// Package config loads environment variables into a typed Config used
// across the recorder. Defaults favor a local one-shot run; missing
// optional variables disable features (history ledger, HTTP surface).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	// Program selection
	AreaID       string // optional; the handshake's area is used when empty
	StationID    string // station to record from
	Stations     []string // extra stations whose guides are prefetched
	Date         string // YYYYMMDD, defaults to today
	ProgramStart string // 14-digit start timestamp selector
	ProgramTitle string // title substring selector, used when ProgramStart is empty

	// Storage
	CacheDir  string
	OutputDir string

	// Tools
	FFmpegPath string

	// History ledger (optional)
	DBDsn string

	// HTTP surface (optional)
	HTTPAddr string
}

// Load reads environment variables and applies defaults. Selector
// validation lives in ValidateRecordReady so callers that only fetch
// metadata don't need recording variables set.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.AreaID = os.Getenv("RADIKO_AREA_ID")
	cfg.StationID = os.Getenv("RADIKO_STATION_ID")
	if s := os.Getenv("RADIKO_STATIONS"); s != "" {
		for _, id := range strings.Split(s, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.Stations = append(cfg.Stations, id)
			}
		}
	}

	cfg.Date = os.Getenv("RADIKO_DATE")
	if cfg.Date == "" {
		cfg.Date = time.Now().Format("20060102")
	} else if len(cfg.Date) != 8 {
		return nil, fmt.Errorf("invalid RADIKO_DATE (want YYYYMMDD): %q", cfg.Date)
	}

	cfg.ProgramStart = os.Getenv("RADIKO_PROGRAM_START")
	if cfg.ProgramStart != "" && len(cfg.ProgramStart) != 14 {
		return nil, fmt.Errorf("invalid RADIKO_PROGRAM_START (want YYYYMMDDHHmmss): %q", cfg.ProgramStart)
	}
	cfg.ProgramTitle = os.Getenv("RADIKO_PROGRAM_TITLE")

	cfg.CacheDir = os.Getenv("CACHE_DIR")
	if cfg.CacheDir == "" {
		cfg.CacheDir = "cache"
	}
	cfg.OutputDir = os.Getenv("OUTPUT_DIR")
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}

	cfg.FFmpegPath = os.Getenv("FFMPEG_PATH")
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}

	cfg.DBDsn = os.Getenv("DB_DSN")
	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")

	return cfg, nil
}

// ValidateRecordReady checks the fields a recording run requires.
func (c *Config) ValidateRecordReady() error {
	if c.StationID == "" {
		return fmt.Errorf("missing env: RADIKO_STATION_ID is required to record")
	}
	if c.ProgramStart == "" && c.ProgramTitle == "" {
		return fmt.Errorf("missing env: set RADIKO_PROGRAM_START or RADIKO_PROGRAM_TITLE to select a program")
	}
	return nil
}

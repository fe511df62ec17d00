// Package rec turns a program's time range and an authenticated
// session into a playable audio file by orchestrating ffmpeg against
// the timefree stream endpoint, with optional metadata tagging.
package rec

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sorabito/timefree/radikoapi"
)

// Status tracks a job through the recording pipeline.
type Status string

const (
	StatusPending          Status = "PENDING"
	StatusRecording        Status = "RECORDING"
	StatusDownloadingCover Status = "DOWNLOADING_COVER"
	StatusTagging          Status = "TAGGING"
	StatusTaggingFailed    Status = "TAGGING_FAILED"
	StatusDone             Status = "DONE"
)

// Job carries everything one recording needs. Temp paths are private
// to the job, suffixed with a uuid so concurrent jobs never collide,
// and removed on every exit path of Record. Temps live in OutputDir so
// the raw-file fallback rename never crosses filesystems.
type Job struct {
	Program   radikoapi.Program
	OutputDir string

	TempAudioPath string
	TempImagePath string
	FinalPath     string

	Status Status
}

// NewJob computes the deterministic final path and collision-free temp
// paths for one program.
func NewJob(p radikoapi.Program, outputDir string) *Job {
	name := fmt.Sprintf("%s_%s_%s", p.StationID, SanitizeFileName(p.Title), p.Start)
	suffix := uuid.NewString()
	return &Job{
		Program:       p,
		OutputDir:     outputDir,
		FinalPath:     filepath.Join(outputDir, name+".m4a"),
		TempAudioPath: filepath.Join(outputDir, fmt.Sprintf(".%s_%s.m4a", name, suffix)),
		TempImagePath: filepath.Join(outputDir, fmt.Sprintf(".%s_%s.jpg", name, suffix)),
		Status:        StatusPending,
	}
}

// cleanup removes the job's temp files. Missing files are fine: a
// successful fallback rename has already consumed the temp audio.
// Cleanup failures are logged, never surfaced as job failures.
func (j *Job) cleanup() {
	for _, p := range []string{j.TempAudioPath, j.TempImagePath} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.Warn("temp file cleanup failed", slog.String("path", p), slog.Any("err", err))
		}
	}
}

// invalidFileChars matches characters illegal in file names across
// platforms, Windows being the strictest.
var invalidFileChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SanitizeFileName replaces filesystem-illegal characters with
// underscore and strips trailing dots and spaces.
func SanitizeFileName(name string) string {
	name = invalidFileChars.ReplaceAllString(name, "_")
	return strings.TrimRight(name, ". ")
}

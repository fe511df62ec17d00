package rec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sorabito/timefree/radikoapi"
	"github.com/sorabito/timefree/telemetry"
)

const (
	defaultFFmpeg     = "ffmpeg"
	defaultStreamBase = "https://radiko.jp/v2/api/ts/playlist.m3u8"

	// lookbackWindow is the protocol's fixed "l" parameter, passed
	// through unchanged; its semantics are owned upstream.
	lookbackWindow = "15"
)

// Recorder produces audio files for programs by running the media tool
// against the authenticated timefree stream. Each Record call runs an
// independent OS process and blocks until it exits; concurrent jobs do
// not share mutable state.
type Recorder struct {
	FFmpegPath string       // media tool binary, default "ffmpeg"
	StreamBase string       // stream playlist endpoint, default production
	HTTPClient *http.Client // cover-art downloads
	Post       *PostProcessor
}

// NewRecorder returns a recorder with default tool paths.
func NewRecorder() *Recorder {
	return &Recorder{Post: NewPostProcessor(defaultFFmpeg)}
}

func (r *Recorder) ffmpegPath() string {
	if r.FFmpegPath != "" {
		return r.FFmpegPath
	}
	return defaultFFmpeg
}

func (r *Recorder) streamBase() string {
	if r.StreamBase != "" {
		return r.StreamBase
	}
	return defaultStreamBase
}

func (r *Recorder) httpClient() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return http.DefaultClient
}

func (r *Recorder) post() *PostProcessor {
	if r.Post != nil {
		return r.Post
	}
	return NewPostProcessor(r.ffmpegPath())
}

// streamURL builds the timefree playlist URL for one program.
func (r *Recorder) streamURL(p radikoapi.Program) string {
	v := url.Values{}
	v.Set("station_id", p.StationID)
	v.Set("l", lookbackWindow)
	v.Set("ft", p.Start)
	v.Set("to", p.End)
	return r.streamBase() + "?" + v.Encode()
}

// Record runs the pipeline for one job and returns the final path.
// Without a cover image the tool writes the final file directly; with
// one, the raw recording goes to a private temp path first so a
// tagging failure cannot damage it. A tagging or cover-download
// failure after a successful raw recording downgrades to an untagged
// result instead of failing the job. Temp files are removed on every
// exit path.
func (r *Recorder) Record(ctx context.Context, auth *radikoapi.AuthContext, job *Job) (string, error) {
	if auth == nil || auth.Token == "" {
		return "", &radikoapi.AuthError{Reason: "recording requires an authenticated session"}
	}

	ctx, span := telemetry.StartSpan(ctx, "rec", "record",
		attribute.String("station_id", job.Program.StationID),
		attribute.String("start", job.Program.Start),
	)
	defer span.End()
	defer job.cleanup()

	telemetry.IncRecordingStarted()
	began := time.Now()

	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		telemetry.IncRecordingFailed()
		return "", fmt.Errorf("create output dir: %w", err)
	}

	hasCover := job.Program.ImageURL != ""
	dest := job.FinalPath
	if hasCover {
		dest = job.TempAudioPath
	}

	job.Status = StatusRecording
	args := []string{
		"-y",
		"-fflags", "+discardcorrupt",
		"-headers", radikoapi.HeaderAuthToken + ": " + auth.Token + "\r\n",
		"-i", r.streamURL(job.Program),
		"-bsf:a", "aac_adtstoasc",
		"-acodec", "copy",
		dest,
	}
	if err := runTool(ctx, r.ffmpegPath(), args); err != nil {
		telemetry.IncRecordingFailed()
		telemetry.RecordError(span, err)
		return "", err
	}

	if hasCover {
		job.Status = StatusDownloadingCover
		cover := job.TempImagePath
		if err := r.downloadCover(ctx, job.Program.ImageURL, cover); err != nil {
			slog.Warn("cover download failed, tagging without artwork",
				slog.String("url", job.Program.ImageURL), slog.Any("err", err))
			cover = ""
		}

		job.Status = StatusTagging
		p := job.Program
		if _, err := r.post().AddMetadata(ctx, job.TempAudioPath, job.FinalPath, p.Title, p.Performers, p.StationName, cover); err != nil {
			// The raw recording is already good; keep it untagged
			// rather than failing the whole job.
			job.Status = StatusTaggingFailed
			telemetry.IncTaggingFallback()
			slog.Warn("tagging failed, keeping raw recording",
				slog.String("path", job.FinalPath), slog.Any("err", err))
			if rerr := os.Rename(job.TempAudioPath, job.FinalPath); rerr != nil {
				telemetry.IncRecordingFailed()
				telemetry.RecordError(span, rerr)
				return "", fmt.Errorf("tagging failed and raw recording could not be kept: %w", rerr)
			}
		}
	}

	job.Status = StatusDone
	telemetry.IncRecordingSucceeded()
	telemetry.ObserveRecordDuration(time.Since(began))
	slog.Info("recording complete",
		slog.String("station", job.Program.StationID),
		slog.String("title", job.Program.Title),
		slog.String("path", job.FinalPath),
		slog.Duration("duration", time.Since(began)))
	return job.FinalPath, nil
}

// downloadCover fetches the program's cover art into dest. Failures
// here are the caller's to downgrade; the job does not depend on them.
func (r *Recorder) downloadCover(ctx context.Context, imageURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return err
	}
	resp, err := r.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cover fetch: unexpected status %s", resp.Status)
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, resp.Body)
	return err
}

// runTool starts the media tool and blocks until it exits. Stderr is
// drained to the log: it is diagnostic output, never a failure signal
// by itself. A tool that cannot be started is ToolUnavailableError; a
// non-zero exit is RecordingError with the exit code.
func runTool(ctx context.Context, bin string, args []string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &ToolUnavailableError{Tool: bin, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return &ToolUnavailableError{Tool: bin, Err: err}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sc := bufio.NewScanner(stderr)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			slog.Debug("media tool", slog.String("bin", filepath.Base(bin)), slog.String("line", sc.Text()))
		}
	}()
	<-done

	if err := cmd.Wait(); err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return &RecordingError{ExitCode: ee.ExitCode(), Err: err}
		}
		return &RecordingError{ExitCode: -1, Err: err}
	}
	return nil
}

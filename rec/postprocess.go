package rec

import (
	"context"

	"github.com/sorabito/timefree/radikoapi"
	"github.com/sorabito/timefree/telemetry"
)

// PostProcessor embeds metadata and optional cover art into the final
// file with a container-level remux. It never re-encodes.
type PostProcessor struct {
	FFmpegPath string
}

// NewPostProcessor returns a post-processor using the given media tool
// binary (empty means "ffmpeg").
func NewPostProcessor(ffmpegPath string) *PostProcessor {
	return &PostProcessor{FFmpegPath: ffmpegPath}
}

func (pp *PostProcessor) ffmpegPath() string {
	if pp.FFmpegPath != "" {
		return pp.FFmpegPath
	}
	return defaultFFmpeg
}

// AddMetadata muxes tempAudio (plus coverPath as an attached picture
// when non-empty) into finalPath with title/artist/album tags and the
// protocol's fixed tag-format version. tempAudio and finalPath must
// differ: the tool would otherwise truncate its own input, so equal
// paths fail with ConfigError before any process is spawned.
func (pp *PostProcessor) AddMetadata(ctx context.Context, tempAudio, finalPath, title, artist, album, coverPath string) (string, error) {
	if tempAudio == finalPath {
		return "", &radikoapi.ConfigError{Reason: "tagging input and output paths are identical"}
	}

	ctx, span := telemetry.StartSpan(ctx, "rec", "add_metadata")
	defer span.End()

	args := []string{"-y", "-i", tempAudio}
	if coverPath != "" {
		args = append(args,
			"-i", coverPath,
			"-map", "0:a",
			"-map", "1:v",
			"-c", "copy",
			"-disposition:v:0", "attached_pic",
		)
	} else {
		args = append(args, "-c", "copy")
	}
	args = append(args,
		"-metadata", "title="+title,
		"-metadata", "artist="+artist,
		"-metadata", "album="+album,
		"-id3v2_version", "3",
		finalPath,
	)

	if err := runTool(ctx, pp.ffmpegPath(), args); err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}
	return finalPath, nil
}

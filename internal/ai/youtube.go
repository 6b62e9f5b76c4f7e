package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/windoze95/saltybytes-voice/internal/logger"
	"go.uber.org/zap"
)

// YouTubeDownloader implements VideoDownloader for YouTube links.
type YouTubeDownloader struct {
	client youtube.Client
}

// NewYouTubeDownloader creates a new YouTubeDownloader.
func NewYouTubeDownloader() *YouTubeDownloader {
	return &YouTubeDownloader{}
}

// Download saves the best progressive mp4 stream (video with audio) of
// videoURL into dir. On error no file is left behind.
func (d *YouTubeDownloader) Download(ctx context.Context, videoURL, dir string) (string, error) {
	video, err := d.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return "", fmt.Errorf("failed to resolve video: %w", err)
	}

	format, err := pickFormat(video.Formats.WithAudioChannels())
	if err != nil {
		return "", err
	}

	stream, _, err := d.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return "", fmt.Errorf("failed to open video stream: %w", err)
	}
	defer stream.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create video dir: %w", err)
	}
	out, err := os.CreateTemp(dir, video.ID+"-*.mp4")
	if err != nil {
		return "", fmt.Errorf("failed to create video file: %w", err)
	}

	written, err := io.Copy(out, stream)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to download video: %w", err)
	}

	logger.Get().Info("video downloaded",
		zap.String("video_id", video.ID),
		zap.Int("height", format.Height),
		zap.Int64("bytes", written),
	)
	return out.Name(), nil
}

// pickFormat returns the tallest mp4 format.
func pickFormat(formats youtube.FormatList) (*youtube.Format, error) {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "video/mp4") {
			continue
		}
		if best == nil || f.Height > best.Height {
			best = f
		}
	}
	if best == nil {
		return nil, errors.New("no mp4 stream with audio available")
	}
	return best, nil
}

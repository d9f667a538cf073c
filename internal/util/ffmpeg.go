package util

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// VideoInfo 视频附件的元信息
type VideoInfo struct {
	Duration float64 `json:"duration"` // Seconds
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Format   string  `json:"format"`
	Size     int64   `json:"size"`
}

type probeResult struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
		Format   string `json:"format_name"`
	} `json:"format"`
}

// GetVideoInfo 使用 ffprobe 读取视频时长和分辨率
func GetVideoInfo(videoPath string) (*VideoInfo, error) {
	fileInfo, err := os.Stat(videoPath)
	if err != nil {
		return nil, fmt.Errorf("video file not found: %w", err)
	}

	jsonOutput, err := ffmpeg.Probe(videoPath)
	if err != nil {
		return nil, fmt.Errorf("probe video: %w", err)
	}

	return parseProbeOutput(jsonOutput, fileInfo.Size())
}

func parseProbeOutput(jsonOutput string, fallbackSize int64) (*VideoInfo, error) {
	var result probeResult
	if err := json.Unmarshal([]byte(jsonOutput), &result); err != nil {
		return nil, fmt.Errorf("decode probe output: %w", err)
	}

	info := &VideoInfo{Format: "unknown", Size: fallbackSize}
	for _, stream := range result.Streams {
		if stream.CodecType == "video" {
			info.Width = stream.Width
			info.Height = stream.Height
			break
		}
	}

	if d, err := strconv.ParseFloat(result.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	if s, err := strconv.ParseInt(result.Format.Size, 10, 64); err == nil {
		info.Size = s
	}
	if name := strings.Split(result.Format.Format, ",")[0]; name != "" {
		info.Format = name
	}

	return info, nil
}

// GenerateThumbnail 截取 timeOffset 处的一帧作为缩略图
func GenerateThumbnail(videoPath, thumbnailPath string, timeOffset string) error {
	if err := os.MkdirAll(filepath.Dir(thumbnailPath), 0755); err != nil {
		return fmt.Errorf("create thumbnail dir: %w", err)
	}

	return ffmpeg.Input(videoPath, ffmpeg.KwArgs{
		"ss": timeOffset,
	}).
		Output(thumbnailPath, ffmpeg.KwArgs{
			"vframes": "1",
			"q:v":     "2", // 1-31，越小质量越高
		}).
		OverWriteOutput().
		Run()
}

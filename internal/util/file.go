package util

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// ValidateMimeType 深度校验文件 MIME 类型
// allowedTypes: 允许的 MIME 前缀或完整类型，如 "image/", "video/", "application/pdf"
func ValidateMimeType(reader io.Reader, allowedTypes []string) (string, error) {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	mimeType := http.DetectContentType(buffer[:n])
	// 去掉 "; charset=utf-8" 之类的参数
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) || mimeType == allowed {
			return mimeType, nil
		}
	}

	return mimeType, ErrInvalidFileType
}

// IsVideo 检测是否为视频
func IsVideo(mimeType string) bool {
	return strings.HasPrefix(mimeType, MimeVideo) || mimeType == "application/x-mpegURL"
}

// HasVideoExtension 按扩展名判断视频（DetectContentType 识别不了部分容器格式）
func HasVideoExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range AllowedVideoExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

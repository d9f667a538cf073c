package util

const DateFormat = "2006-01-02"

const (
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 课程附件允许的 MIME 类型
const (
	MimeVideo = "video/"
	MimeImage = "image/"
	MimeText  = "text/plain"
	MimePDF   = "application/pdf"
)

var (
	AllowedAttachmentTypes = []string{MimeVideo, MimeImage, MimePDF, MimeText}
	AllowedVideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".wmv", ".flv", ".webm"}
)

const (
	QuizLinkLength = 10
	// 分享链接字符集，去掉了易混淆的字符
	QuizLinkAlphabet = "0123456789abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
)

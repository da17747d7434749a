package posts

import (
	"path"
	"strings"
)

// UploadPrefix is the object prefix every attachment is stored under.
const UploadPrefix = "uploads/"

var videoExtensions = map[string]bool{
	"mp4":  true,
	"mov":  true,
	"m4v":  true,
	"webm": true,
	"3gp":  true,
}

// MediaTypeFor guesses the media type from a file name.
func MediaTypeFor(name string) MediaType {
	if videoExtensions[extension(name)] {
		return MediaVideo
	}
	return MediaImage
}

// ContentTypeFor returns the upload content type. Every video is sent as
// video/mp4 and every non-png image as image/jpeg.
func ContentTypeFor(t MediaType, ext string) string {
	switch {
	case t == MediaVideo:
		return "video/mp4"
	case ext == "png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}

// ObjectPath builds the storage path for an upload named id. The extension
// comes from name, falling back to mp4 for video and jpg otherwise.
func ObjectPath(id, name string, t MediaType) (objectPath, ext string) {
	ext = extension(name)
	if ext == "" {
		if t == MediaVideo {
			ext = "mp4"
		} else {
			ext = "jpg"
		}
	}
	return UploadPrefix + id + "." + ext, ext
}

func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

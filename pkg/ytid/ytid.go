// Package ytid extracts the 11-character video id from the reference a user
// pastes in, which may be a bare id or any of the usual YouTube URL shapes.
package ytid

import (
	"errors"
	"net/url"
	"strings"
)

const idLength = 11

var ErrInvalidVideoReference = errors.New("invalid video reference")

func Parse(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrInvalidVideoReference
	}

	if isVideoID(ref) {
		return ref, nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", ErrInvalidVideoReference
	}

	var id string
	switch {
	case strings.HasSuffix(u.Host, "youtu.be"):
		id = strings.Trim(u.Path, "/")
	case strings.HasSuffix(u.Host, "youtube.com"):
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = strings.TrimPrefix(u.Path, "/embed/")
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = strings.TrimPrefix(u.Path, "/shorts/")
		}
	}

	id = strings.Trim(id, "/")
	if !isVideoID(id) {
		return "", ErrInvalidVideoReference
	}

	return id, nil
}

func isVideoID(s string) bool {
	if len(s) != idLength {
		return false
	}

	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}

	return true
}

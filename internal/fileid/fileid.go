// Package fileid derives stable meeting ids for transcript files in a watched inbox.
package fileid

import (
	"path/filepath"

	"github.com/google/uuid"
)

// namespace scopes SHA-1 ids generated from file paths.
var namespace = uuid.MustParse("0b6f6c1e-2f7d-5d3a-9a41-6a2c7e0d8b11")

// MeetingID returns a UUID derived from the cleaned absolute path, so saving the
// same file again updates the same meeting.
func MeetingID(absolutePath string) string {
	return uuid.NewSHA1(namespace, []byte(filepath.Clean(absolutePath))).String()
}

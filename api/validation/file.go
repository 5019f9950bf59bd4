package validation

import (
	"bytes"
	"io"
)

type FileType string

const (
	FileTypeEPUB    FileType = "epub"
	FileTypeZIP     FileType = "zip"
	FileTypeUnknown FileType = "unknown"
)

var (
	zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}
	// An EPUB container starts with an uncompressed "mimetype" entry.
	epubMimetype = []byte("mimetypeapplication/epub+zip")
)

// DetectFileType sniffs the first bytes of r and rewinds it. It never
// rejects a file; callers use the result for logging only.
func DetectFileType(r io.ReadSeeker) (FileType, error) {
	buffer := make([]byte, 64)
	n, err := io.ReadFull(r, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return FileTypeUnknown, err
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return FileTypeUnknown, err
	}

	head := buffer[:n]
	switch {
	case !bytes.HasPrefix(head, zipMagic):
		return FileTypeUnknown, nil
	case bytes.Contains(head, epubMimetype):
		return FileTypeEPUB, nil
	default:
		return FileTypeZIP, nil
	}
}

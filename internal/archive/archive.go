package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

// DefaultMaxEntryBytes bounds a single decompressed document
const DefaultMaxEntryBytes int64 = 100 << 20

// Entry is one document pulled out of an upload
type Entry struct {
	// Archive is the upload the entry came from (the ZIP or XML file name)
	Archive string
	// Name is the entry path inside the archive
	Name string
	Data []byte
	// Err is set when the entry could not be read; the rest of the
	// archive is still returned.
	Err error
}

// IsZip reports whether data starts with a ZIP local file header
func IsZip(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04")) || bytes.HasPrefix(data, []byte("PK\x05\x06"))
}

// IsXML reports whether data looks like an XML document
func IsXML(data []byte) bool {
	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
	data = bytes.TrimLeft(data, " \t\r\n")
	return len(data) > 0 && data[0] == '<'
}

// Open returns the documents of one upload. ZIP archives yield every .xml
// entry; a bare XML upload is a one-document archive.
func Open(name string, data []byte, maxEntryBytes int64) ([]Entry, error) {
	switch {
	case IsZip(data):
		return ReadZip(name, data, maxEntryBytes)
	case IsXML(data):
		if maxEntryBytes > 0 && int64(len(data)) > maxEntryBytes {
			return nil, fmt.Errorf("%s: %d bytes exceeds limit of %d", name, len(data), maxEntryBytes)
		}
		return []Entry{{Archive: name, Name: path.Base(name), Data: data}}, nil
	default:
		return nil, fmt.Errorf("%s: unsupported file type (want .zip or .xml)", name)
	}
}

// ReadZip reads the XML entries of a ZIP archive in archive order
func ReadZip(name string, data []byte, maxEntryBytes int64) ([]Entry, error) {
	if maxEntryBytes <= 0 {
		maxEntryBytes = DefaultMaxEntryBytes
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open zip: %w", name, err)
	}

	var entries []Entry
	for _, f := range zr.File {
		if !isDocumentEntry(f) {
			continue
		}

		entry := Entry{Archive: name, Name: f.Name}
		if f.UncompressedSize64 > uint64(maxEntryBytes) {
			entry.Err = fmt.Errorf("%s: %d bytes exceeds limit of %d", f.Name, f.UncompressedSize64, maxEntryBytes)
			entries = append(entries, entry)
			continue
		}
		entry.Data, entry.Err = readEntry(f, maxEntryBytes)
		entries = append(entries, entry)
	}
	return entries, nil
}

func isDocumentEntry(f *zip.File) bool {
	if f.FileInfo().IsDir() {
		return false
	}
	if strings.HasPrefix(f.Name, "__MACOSX/") || strings.HasPrefix(path.Base(f.Name), "._") {
		return false
	}
	return strings.EqualFold(path.Ext(f.Name), ".xml")
}

func readEntry(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	defer rc.Close()

	// Declared sizes can lie; never read past the limit
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s: exceeds limit of %d bytes", f.Name, limit)
	}
	return data, nil
}

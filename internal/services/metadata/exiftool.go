package metadata

import (
	"fmt"
	"strings"

	exiftool "github.com/barasher/go-exiftool"
)

// ExiftoolOpener starts a stay-open exiftool process per session.
type ExiftoolOpener struct {
	binaryPath string
}

func NewExiftoolOpener(binaryPath string) *ExiftoolOpener {
	return &ExiftoolOpener{binaryPath: binaryPath}
}

func (o *ExiftoolOpener) Open() (Session, error) {
	var opts []func(*exiftool.Exiftool) error
	if o.binaryPath != "" {
		opts = append(opts, exiftool.SetExiftoolBinaryPath(o.binaryPath))
	}

	et, err := exiftool.NewExiftool(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start exiftool: %w", err)
	}
	return &exiftoolSession{et: et}, nil
}

type exiftoolSession struct {
	et *exiftool.Exiftool
}

func (s *exiftoolSession) WriteMetadata(path string, fields Fields) error {
	fm, err := buildFileMetadata(path, fields)
	if err != nil {
		return err
	}

	batch := []exiftool.FileMetadata{fm}
	s.et.WriteMetadata(batch)
	return batch[0].Err
}

// buildFileMetadata converts fields into a write request. exiftool reads its
// stay-open arguments one per line, so a line break in the path or any value
// would start a new argument and is rejected. A nil value clears the tag.
func buildFileMetadata(path string, fields Fields) (exiftool.FileMetadata, error) {
	fm := exiftool.EmptyFileMetadata()
	if hasLineBreak(path) {
		return fm, fmt.Errorf("%w: path %q", ErrInvalidValue, path)
	}
	fm.File = path

	for key, value := range fields {
		if hasLineBreak(key) {
			return fm, fmt.Errorf("%w: tag %q", ErrInvalidValue, key)
		}
		switch v := value.(type) {
		case nil:
			fm.Clear(key)
		case string:
			if hasLineBreak(v) {
				return fm, fmt.Errorf("%w: %s", ErrInvalidValue, key)
			}
			fm.SetString(key, v)
		case []string:
			for _, item := range v {
				if hasLineBreak(item) {
					return fm, fmt.Errorf("%w: %s", ErrInvalidValue, key)
				}
			}
			fm.SetStrings(key, v)
		default:
			str := fmt.Sprint(v)
			if hasLineBreak(str) {
				return fm, fmt.Errorf("%w: %s", ErrInvalidValue, key)
			}
			fm.SetString(key, str)
		}
	}
	return fm, nil
}

func hasLineBreak(s string) bool {
	return strings.ContainsAny(s, "\r\n")
}

func (s *exiftoolSession) ReadMetadata(path string) ([]Fields, error) {
	if hasLineBreak(path) {
		return nil, fmt.Errorf("%w: path %q", ErrInvalidValue, path)
	}
	var records []Fields
	for _, fm := range s.et.ExtractMetadata(path) {
		if fm.Err != nil {
			return nil, fm.Err
		}
		records = append(records, Fields(fm.Fields))
	}
	return records, nil
}

func (s *exiftoolSession) Close() error {
	return s.et.Close()
}

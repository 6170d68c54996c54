package metadata

import (
	"strings"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
)

// Fields maps tag names to values. Values are string, []string or nil; nil
// clears the tag.
type Fields map[string]any

var SupportedFormats = []string{".jpg", ".jpeg", ".png", ".webp", ".tiff"}

func IsSupported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, f := range SupportedFormats {
		if f == ext {
			return true
		}
	}
	return false
}

// PrepareFields maps a record onto the tag space of the given extension.
// Line breaks become spaces. An empty keyword list clears every keyword tag
// of the format.
func PrepareFields(md models.MetadataRecord, ext string) Fields {
	md = md.SingleLine()
	kw := md.Keywords
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		f := Fields{
			"IPTC:ObjectName":       md.Title,
			"IPTC:Caption-Abstract": md.Description,
			"XMP:Title":             md.Title,
			"XMP:Description":       md.Description,
			"EXIF:ImageDescription": md.Description,
			"EXIF:XPTitle":          md.Title,
		}
		if len(kw) > 0 {
			f["IPTC:Keywords"] = kw
			f["XMP:Subject"] = kw
			f["EXIF:XPKeywords"] = strings.Join(kw, ";")
		} else {
			clearTags(f, "IPTC:Keywords", "XMP:Subject", "EXIF:XPKeywords")
		}
		return f

	case ".png":
		f := Fields{
			"PNG:Title":       md.Title,
			"PNG:Description": md.Description,
			"XMP:Title":       md.Title,
			"XMP:Description": md.Description,
			"Description":     md.Description,
		}
		if len(kw) > 0 {
			joined := joinTrimmed(kw)
			f["XMP:Subject"] = kw
			f["XMP-dc:Subject"] = kw
			f["Keywords"] = kw
			f["PNG:Keywords"] = joined
			f["PNG-iTXt:Keywords"] = joined
		} else {
			clearTags(f, "XMP:Subject", "XMP-dc:Subject", "Keywords", "PNG:Keywords", "PNG-iTXt:Keywords")
		}
		return f

	case ".webp":
		f := Fields{
			"XMP:Title":       md.Title,
			"XMP:Description": md.Description,
		}
		if len(kw) > 0 {
			f["XMP:Subject"] = kw
		} else {
			clearTags(f, "XMP:Subject")
		}
		return f

	case ".tiff":
		f := Fields{
			"TIFF:ImageDescription": md.Description,
			"TIFF:DocumentName":     md.Title,
			"XMP:Title":             md.Title,
			"XMP:Description":       md.Description,
		}
		if len(kw) > 0 {
			f["XMP:Subject"] = kw
		} else {
			clearTags(f, "XMP:Subject")
		}
		return f

	default:
		f := Fields{
			"Title":       md.Title,
			"Description": md.Description,
		}
		if len(kw) > 0 {
			f["Keywords"] = kw
		} else {
			clearTags(f, "Keywords")
		}
		return f
	}
}

func clearTags(f Fields, keys ...string) {
	for _, k := range keys {
		f[k] = nil
	}
}

// pngKeywordFields is the keyword-only second pass for PNG files; the keyword
// representation of the combined first write does not stick for that format.
// An empty list clears the same tags.
func pngKeywordFields(kw []string) Fields {
	if len(kw) == 0 {
		f := Fields{}
		clearTags(f, "Keywords", "XMP:Subject", "XMP-dc:Subject", "PNG:Keywords", "PNG-iTXt:Keywords")
		return f
	}
	kw = models.MetadataRecord{Keywords: kw}.SingleLine().Keywords
	return Fields{
		"Keywords":       kw,
		"XMP:Subject":    kw,
		"XMP-dc:Subject": kw,
		"PNG:Keywords":   joinTrimmed(kw),
	}
}

func joinTrimmed(kw []string) string {
	trimmed := make([]string, 0, len(kw))
	for _, k := range kw {
		trimmed = append(trimmed, strings.TrimSpace(k))
	}
	return strings.Join(trimmed, ";")
}

// ExistingRecord reads title, description and keywords out of one readback record.
func ExistingRecord(f Fields) models.MetadataRecord {
	return models.MetadataRecord{
		Title:       firstString(f, "Title", "XMP:Title", "ObjectName", "XPTitle", "DocumentName"),
		Description: firstString(f, "Description", "XMP:Description", "ImageDescription", "Caption-Abstract"),
		Keywords:    NormalizeKeywords(ExtractKeywords(f)),
	}
}

func firstString(f Fields, keys ...string) string {
	for _, k := range keys {
		if s, ok := f[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

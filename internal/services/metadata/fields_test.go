package metadata

import (
	"reflect"
	"testing"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
)

func TestPrepareFields(t *testing.T) {
	md := models.MetadataRecord{
		Title:       "Red bicycle",
		Description: "A red bicycle leaning on a wall",
		Keywords:    []string{"bicycle", " red ", "wall"},
	}

	tests := []struct {
		ext  string
		want map[string]any
	}{
		{".jpg", map[string]any{
			"IPTC:ObjectName":       md.Title,
			"IPTC:Caption-Abstract": md.Description,
			"IPTC:Keywords":         md.Keywords,
			"XMP:Title":             md.Title,
			"XMP:Description":       md.Description,
			"XMP:Subject":           md.Keywords,
			"EXIF:ImageDescription": md.Description,
			"EXIF:XPTitle":          md.Title,
			"EXIF:XPKeywords":       "bicycle; red ;wall",
		}},
		{".png", map[string]any{
			"PNG:Title":         md.Title,
			"PNG:Description":   md.Description,
			"XMP:Title":         md.Title,
			"XMP:Description":   md.Description,
			"Description":       md.Description,
			"XMP:Subject":       md.Keywords,
			"XMP-dc:Subject":    md.Keywords,
			"Keywords":          md.Keywords,
			"PNG:Keywords":      "bicycle;red;wall",
			"PNG-iTXt:Keywords": "bicycle;red;wall",
		}},
		{".webp", map[string]any{
			"XMP:Title":       md.Title,
			"XMP:Description": md.Description,
			"XMP:Subject":     md.Keywords,
		}},
		{".tiff", map[string]any{
			"TIFF:ImageDescription": md.Description,
			"TIFF:DocumentName":     md.Title,
			"XMP:Title":             md.Title,
			"XMP:Description":       md.Description,
			"XMP:Subject":           md.Keywords,
		}},
		{".bmp", map[string]any{
			"Title":       md.Title,
			"Description": md.Description,
			"Keywords":    md.Keywords,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			got := PrepareFields(md, tt.ext)
			if !reflect.DeepEqual(map[string]any(got), tt.want) {
				t.Errorf("PrepareFields(%s) =\n%#v\nwant\n%#v", tt.ext, got, tt.want)
			}
		})
	}

	t.Run("jpeg matches jpg", func(t *testing.T) {
		if !reflect.DeepEqual(PrepareFields(md, ".JPEG"), PrepareFields(md, ".jpg")) {
			t.Error("jpeg and jpg mappings differ")
		}
	})

	t.Run("no keywords clears keyword tags", func(t *testing.T) {
		cases := map[string][]string{
			".jpg":  {"IPTC:Keywords", "XMP:Subject", "EXIF:XPKeywords"},
			".png":  {"XMP:Subject", "XMP-dc:Subject", "Keywords", "PNG:Keywords", "PNG-iTXt:Keywords"},
			".webp": {"XMP:Subject"},
			".tiff": {"XMP:Subject"},
			".bmp":  {"Keywords"},
		}
		for ext, keys := range cases {
			got := PrepareFields(models.MetadataRecord{Title: "t", Keywords: []string{}}, ext)
			for _, k := range keys {
				v, ok := got[k]
				if !ok || v != nil {
					t.Errorf("PrepareFields(%s)[%s] = %v, %v; want nil entry", ext, k, v, ok)
				}
			}
		}
	})

	t.Run("line breaks become spaces", func(t *testing.T) {
		got := PrepareFields(models.MetadataRecord{
			Title:       "Sunset\n-FileName=/tmp/x.jpg",
			Description: "one\r\ntwo",
			Keywords:    []string{"a\nb"},
		}, ".jpg")

		if got["XMP:Title"] != "Sunset -FileName=/tmp/x.jpg" {
			t.Errorf("XMP:Title = %q", got["XMP:Title"])
		}
		if got["IPTC:Caption-Abstract"] != "one two" {
			t.Errorf("IPTC:Caption-Abstract = %q", got["IPTC:Caption-Abstract"])
		}
		if !reflect.DeepEqual(got["IPTC:Keywords"], []string{"a b"}) {
			t.Errorf("IPTC:Keywords = %v", got["IPTC:Keywords"])
		}
		if _, err := buildFileMetadata("/tmp/out.jpg", got); err != nil {
			t.Errorf("prepared fields rejected: %v", err)
		}
	})
}

func TestPngKeywordFields(t *testing.T) {
	if got := pngKeywordFields([]string{"a\nb", " c "}); got["PNG:Keywords"] != "a b;c" {
		t.Errorf("PNG:Keywords = %q", got["PNG:Keywords"])
	}

	cleared := pngKeywordFields(nil)
	for _, k := range []string{"Keywords", "XMP:Subject", "XMP-dc:Subject", "PNG:Keywords", "PNG-iTXt:Keywords"} {
		if v, ok := cleared[k]; !ok || v != nil {
			t.Errorf("pngKeywordFields(nil)[%s] = %v, %v; want nil entry", k, v, ok)
		}
	}
}

func TestExistingRecord(t *testing.T) {
	f := Fields{
		"ObjectName":       "from iptc",
		"Caption-Abstract": "caption",
		"Keywords":         "a,b",
	}
	got := ExistingRecord(f)
	want := models.MetadataRecord{Title: "from iptc", Description: "caption", Keywords: []string{"a", "b"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExistingRecord() = %+v, want %+v", got, want)
	}
}

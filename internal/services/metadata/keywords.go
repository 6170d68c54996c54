package metadata

import (
	"fmt"
	"strings"
)

// ExistingKeywords is the shape keywords were stored in. It is either a
// KeywordList or a DelimitedKeywords.
type ExistingKeywords interface {
	normalize() []string
}

// KeywordList is a native list value.
type KeywordList []string

// DelimitedKeywords is a single string holding keywords separated by any rune
// of Delimiters.
type DelimitedKeywords struct {
	Value      string
	Delimiters string
}

const DefaultDelimiters = ",;"

// keywordSources is checked in order; the first non-empty source wins.
var keywordSources = []string{
	"Keywords",
	"PNG:Keywords",
	"IPTC:Keywords",
	"XMP:Subject",
	"XMP-dc:Subject",
	"Subject",
}

func (l KeywordList) normalize() []string {
	out := make([]string, 0, len(l))
	for _, k := range l {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func (d DelimitedKeywords) normalize() []string {
	delims := d.Delimiters
	if delims == "" {
		delims = DefaultDelimiters
	}
	parts := strings.FieldsFunc(d.Value, func(r rune) bool {
		return strings.ContainsRune(delims, r)
	})
	return KeywordList(parts).normalize()
}

// NormalizeKeywords returns the canonical ordered keyword sequence.
func NormalizeKeywords(k ExistingKeywords) []string {
	if k == nil {
		return []string{}
	}
	return k.normalize()
}

// ExtractKeywords finds the first keyword-bearing field with content.
func ExtractKeywords(f Fields) ExistingKeywords {
	for _, key := range keywordSources {
		v, ok := f[key]
		if !ok || v == nil {
			continue
		}
		var candidate ExistingKeywords
		switch val := v.(type) {
		case []string:
			candidate = KeywordList(val)
		case []any:
			list := make(KeywordList, 0, len(val))
			for _, item := range val {
				list = append(list, fmt.Sprint(item))
			}
			candidate = list
		case string:
			candidate = DelimitedKeywords{Value: val, Delimiters: DefaultDelimiters}
		default:
			candidate = DelimitedKeywords{Value: fmt.Sprint(val), Delimiters: DefaultDelimiters}
		}
		if len(candidate.normalize()) > 0 {
			return candidate
		}
	}
	return nil
}

package models

import "strings"

// MetadataRecord is the title/description/keyword set embedded into an image.
type MetadataRecord struct {
	Title       string   `json:"title" bson:"title"`
	Description string   `json:"description" bson:"description"`
	Keywords    []string `json:"keywords" bson:"keywords"`
}

// MetadataUpdate is a partial field map. Nil fields were not supplied.
type MetadataUpdate struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Keywords    *[]string `json:"keywords,omitempty"`
}

// IsEmpty reports whether no field was supplied.
func (u MetadataUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Keywords == nil
}

// Apply overlays the supplied fields on top of base.
func (u MetadataUpdate) Apply(base MetadataRecord) MetadataRecord {
	merged := base
	if u.Title != nil {
		merged.Title = *u.Title
	}
	if u.Description != nil {
		merged.Description = *u.Description
	}
	if u.Keywords != nil {
		merged.Keywords = append([]string(nil), (*u.Keywords)...)
	}
	return merged
}

// Fields lists the supplied field names in a stable order.
func (u MetadataUpdate) Fields() []string {
	var fields []string
	if u.Title != nil {
		fields = append(fields, "title")
	}
	if u.Description != nil {
		fields = append(fields, "description")
	}
	if u.Keywords != nil {
		fields = append(fields, "keywords")
	}
	return fields
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// SingleLine replaces line breaks in every field with spaces.
func (m MetadataRecord) SingleLine() MetadataRecord {
	out := MetadataRecord{
		Title:       lineBreaks.Replace(m.Title),
		Description: lineBreaks.Replace(m.Description),
	}
	if m.Keywords != nil {
		out.Keywords = make([]string, len(m.Keywords))
		for i, k := range m.Keywords {
			out.Keywords[i] = lineBreaks.Replace(k)
		}
	}
	return out
}

// HasLineBreak reports whether any supplied field contains \r or \n.
func (u MetadataUpdate) HasLineBreak() bool {
	if u.Title != nil && hasLineBreak(*u.Title) {
		return true
	}
	if u.Description != nil && hasLineBreak(*u.Description) {
		return true
	}
	if u.Keywords != nil {
		for _, k := range *u.Keywords {
			if hasLineBreak(k) {
				return true
			}
		}
	}
	return false
}

func hasLineBreak(s string) bool {
	return strings.ContainsAny(s, "\r\n")
}

package models

type ItemResult struct {
	ID        string         `json:"_id" bson:"id"`
	Filename  string         `json:"filename" bson:"filename"`
	ImageURL  string         `json:"imageUrl" bson:"imageUrl"`
	Metadata  MetadataRecord `json:"metadata" bson:"metadata"`
	MirrorURL string         `json:"mirrorUrl,omitempty" bson:"mirrorUrl,omitempty"`
}

package models

// Document is the logical backing store a deployment is attached to. One
// document owns a set of sheets, a version counter and its cached aggregates.
type Document struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	CreatedTS int64  `json:"created_ts"`
	Trashed   bool   `json:"trashed"`
}

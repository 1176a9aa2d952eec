package model

import "time"

// Project is an algorithm project container. Project ids are small sequential
// integers assigned by the store, matching what platform clients expect.
type Project struct {
	ProjectID int       `json:"projectId"`
	Name      string    `json:"name"`
	Language  string    `json:"language"`
	Created   time.Time `json:"created"`
	Modified  time.Time `json:"modified"`
}

// ProjectFile is a single source file attached to a project. Files are keyed
// by name within their project; re-adding a name overwrites the content.
type ProjectFile struct {
	Name     string    `json:"name"`
	Content  string    `json:"content"`
	Modified time.Time `json:"modified"`
}

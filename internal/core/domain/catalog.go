package domain

import (
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

type CatalogRecord struct {
	ID          string    `json:"id" dynamodbav:"id"`
	Name        string    `json:"name" dynamodbav:"name"`
	Location    string    `json:"location" dynamodbav:"location"`
	Description string    `json:"description,omitempty" dynamodbav:"description,omitempty"`
	FileLink    string    `json:"file_link" dynamodbav:"url"`
	FileKey     string    `json:"file_key,omitempty" dynamodbav:"file_key,omitempty"`
	CreatedAt   time.Time `json:"created_at" dynamodbav:"created_at"`
}

// Previewable reports whether the stored file is an image that can be shown inline.
func (r CatalogRecord) Previewable() bool {
	return IsImageKey(r.FileKey)
}

// CatalogFilter holds case-insensitive substring filters; empty fields match everything.
type CatalogFilter struct {
	Name     string
	Location string
}

func (f CatalogFilter) Match(r CatalogRecord) bool {
	if f.Name != "" && !containsFold(r.Name, f.Name) {
		return false
	}
	if f.Location != "" && !containsFold(r.Location, f.Location) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
}

func IsImageKey(key string) bool {
	if key == "" {
		return false
	}
	_, ok := imageExtensions[strings.ToLower(path.Ext(key))]
	return ok
}

type UploadState string

const (
	UploadIdle      UploadState = "idle"
	UploadSubmitted UploadState = "submitted"
	UploadPersisted UploadState = "persisted"
	UploadRejected  UploadState = "rejected"
)

type UploadStep string

const (
	StepValidate    UploadStep = "validate"
	StepStoreFile   UploadStep = "store file"
	StepIssueLink   UploadStep = "issue link"
	StepSaveCatalog UploadStep = "save catalog record"
)

// UploadForm is one user submission of the upload form.
type UploadForm struct {
	Filename    string
	ContentType string
	Body        io.Reader

	Name        string
	Location    string
	Description string
}

type UploadOutcome struct {
	State  UploadState    `json:"state"`
	Step   UploadStep     `json:"step,omitempty"`
	Record *CatalogRecord `json:"record,omitempty"`
}

// UploadError names the upload step that failed.
type UploadError struct {
	Step UploadStep
	Err  error
}

func (e *UploadError) Error() string {
	if e == nil {
		return "upload error"
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *UploadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

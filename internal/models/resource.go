package models

import (
	"io"
	"time"

	"github.com/lib/pq"
)

// ResourceStatus is the moderation state of an upload.
type ResourceStatus string

const (
	ResourceStatusPending  ResourceStatus = "pending"
	ResourceStatusApproved ResourceStatus = "approved"
	ResourceStatusRejected ResourceStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ResourceStatus) Valid() bool {
	switch s {
	case ResourceStatusPending, ResourceStatusApproved, ResourceStatusRejected:
		return true
	}
	return false
}

// FacetAll is the wildcard facet value.
const FacetAll = "all"

// Resource is an uploaded course material.
type Resource struct {
	ID              string         `db:"id" json:"id"`
	Title           string         `db:"title" json:"title"`
	CourseCode      string         `db:"course_code" json:"course_code"`
	Description     string         `db:"description" json:"description"`
	College         string         `db:"college" json:"college"`
	Department      string         `db:"department" json:"department"`
	Programme       string         `db:"programme" json:"programme,omitempty"`
	Level           string         `db:"level" json:"level"`
	Semester        *string        `db:"semester" json:"semester,omitempty"`
	UploadedBy      string         `db:"uploaded_by" json:"uploaded_by"`
	UploadedByID    *string        `db:"uploaded_by_id" json:"uploaded_by_id,omitempty"`
	UploadedByEmail string         `db:"uploaded_by_email" json:"-"`
	UploaderRole    UserRole       `db:"uploader_role" json:"uploader_role"`
	Date            time.Time      `db:"date" json:"date"`
	FileType        string         `db:"file_type" json:"file_type"`
	FileURL         string         `db:"file_url" json:"file_url"`
	StorageKey      string         `db:"storage_key" json:"-"`
	FileSize        int64          `db:"file_size" json:"file_size"`
	Tags            pq.StringArray `db:"tags" json:"tags"`
	Downloads       int            `db:"downloads" json:"downloads"`
	Status          ResourceStatus `db:"status" json:"status"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// OwnedBy reports whether the resource was uploaded by userID.
func (r *Resource) OwnedBy(userID string) bool {
	return r.UploadedByID != nil && *r.UploadedByID == userID
}

// ResourceFilter narrows a search. Empty or "all" facets do not constrain.
type ResourceFilter struct {
	College      string `form:"college"`
	Department   string `form:"department"`
	Programme    string `form:"programme"`
	Level        string `form:"level"`
	FileType     string `form:"file_type"`
	UploaderRole string `form:"uploader_role"`
	Query        string `form:"q"`
	CourseCode   string `form:"course_code"`
	ExamOnly     bool   `form:"-"`
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
}

// UploadResourceRequest is the metadata submitted alongside an upload.
type UploadResourceRequest struct {
	Title       string   `form:"title" json:"title" validate:"required,max=200"`
	CourseCode  string   `form:"course_code" json:"course_code" validate:"required,max=32"`
	Description string   `form:"description" json:"description" validate:"max=2000"`
	College     string   `form:"college" json:"college" validate:"required"`
	Department  string   `form:"department" json:"department" validate:"required"`
	Programmes  []string `form:"programmes" json:"programmes"`
	Level       string   `form:"level" json:"level" validate:"required"`
	Semester    string   `form:"semester" json:"semester" validate:"omitempty,oneof='First Semester' 'Second Semester'"`
	Tags        []string `form:"tags" json:"tags"`
}

// UpdateResourceStatusRequest moderates an upload.
type UpdateResourceStatusRequest struct {
	Status ResourceStatus `json:"status" validate:"required,oneof=pending approved rejected"`
}

// ResourceDetail bundles a resource with related materials.
type ResourceDetail struct {
	Resource *Resource  `json:"resource"`
	Related  []Resource `json:"related"`
}

// DownloadReceipt is returned when a download is recorded.
type DownloadReceipt struct {
	ResourceID string `json:"resource_id"`
	FileURL    string `json:"file_url"`
	Downloads  int    `json:"downloads"`
	Duplicate  bool   `json:"duplicate"`
}

// UploaderStats summarises a contributor's uploads.
type UploaderStats struct {
	TotalUploads   int        `json:"total_uploads"`
	TotalDownloads int        `json:"total_downloads"`
	Pending        int        `json:"pending"`
	Approved       int        `json:"approved"`
	Rejected       int        `json:"rejected"`
	Recent         []Resource `json:"recent"`
}

// UploadFile is the binary half of an upload.
type UploadFile struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

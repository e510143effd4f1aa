package station

import "mime/multipart"

// UploadRequest is the multipart form for a price file upload.
type UploadRequest struct {
	File *multipart.FileHeader `form:"file" binding:"required"`
}

// StatsRequest carries the optional search filter for statistics.
type StatsRequest struct {
	SearchColumn string `form:"search_column"`
	Keyword      string `form:"keyword"`
}

package store

import "time"

// FileType is the detected type of an uploaded asset.
type FileType string

const (
	FileTypeImage    FileType = "image"
	FileTypeVideo    FileType = "video"
	FileTypeAudio    FileType = "audio"
	FileTypeDocument FileType = "document"
	FileTypeArchive  FileType = "archive"
	FileTypeOther    FileType = "other"
)

// AccessLevel controls who can see a committed media item.
type AccessLevel string

const (
	AccessPublic  AccessLevel = "public"
	AccessMembers AccessLevel = "members"
	AccessStaff   AccessLevel = "staff"
	AccessPrivate AccessLevel = "private"
)

// PendingFile is an uploaded asset awaiting operator review. It is an
// immutable snapshot; all operator-editable state lives in the review draft.
type PendingFile struct {
	ID               string
	Namespace        string
	OriginalFilename string
	FileType         FileType
	FileSize         int64
	CreatedAt        time.Time
	ExpiresAt        time.Time
	AISuggestedTitle string
	AISuggestedTags  []string
}

type Tag struct {
	ID        string
	Namespace string
	Name      string
	CreatedAt time.Time
}

type Collection struct {
	ID        string
	Namespace string
	Name      string
	Slug      string
	CreatedAt time.Time
}

// MediaItem is a committed member of the permanent library.
type MediaItem struct {
	ID               string
	Namespace        string
	Title            string
	Slug             string
	OriginalFilename string
	FileType         FileType
	FileSize         int64
	AccessLevel      AccessLevel
	CollectionID     *string
	StorageKey       string
	CreatedAt        time.Time
}

// ListQuery filters and orders a pending-file listing.
type ListQuery struct {
	Namespace string
	Search    string
	SortField string // created_at | expires_at | filename | size
	SortDesc  bool
	FileType  FileType // empty matches all
}

// TagRef identifies a tag for an approve call: either an existing tag id or,
// for not-yet-created tags, the tag name to create.
type TagRef struct {
	ID   string
	Name string
}

// ApproveRequest carries the reviewed metadata committed with a pending file.
type ApproveRequest struct {
	Title          string
	Slug           string
	Tags           []TagRef
	AccessLevel    AccessLevel
	CollectionID   string
	CollectionName string
}

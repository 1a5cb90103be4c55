package frame

import (
	"time"

	"github.com/R3E-Network/framestore/manifest"
)

// Frame is a stored manifest with its listing columns denormalised from the
// current version.
type Frame struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	ImageURL         string            `json:"image_url"`
	Button1Label     string            `json:"button1_label"`
	Button1Target    string            `json:"button1_target"`
	Manifest         manifest.Manifest `json:"json_full"`
	Likes            int               `json:"likes"`
	CurrentVersionID string            `json:"current_version_id,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Apply copies m and its listing columns onto f.
func (f *Frame) Apply(m *manifest.Manifest) {
	s := manifest.Summarize(m)
	f.Title = s.Title
	f.Description = s.Description
	f.ImageURL = s.ImageURL
	f.Button1Label = s.ButtonLabel
	f.Button1Target = s.ButtonTarget
	f.Manifest = *m.Clone()
}

// Version is an immutable snapshot of a frame's manifest.
type Version struct {
	ID              string            `json:"id"`
	FrameID         string            `json:"frame_id"`
	ParentVersionID string            `json:"parent_version_id,omitempty"`
	Number          int               `json:"version_number"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	ImageURL        string            `json:"image_url"`
	Button1Label    string            `json:"button1_label"`
	Button1Target   string            `json:"button1_target"`
	Manifest        manifest.Manifest `json:"json_full"`
	IsCurrent       bool              `json:"is_current"`
	CreatedAt       time.Time         `json:"created_at"`
}

// NewVersion snapshots m for frameID. Numbering and parentage are assigned
// by the store.
func NewVersion(frameID string, m *manifest.Manifest) Version {
	s := manifest.Summarize(m)
	return Version{
		FrameID:       frameID,
		Title:         s.Title,
		Description:   s.Description,
		ImageURL:      s.ImageURL,
		Button1Label:  s.ButtonLabel,
		Button1Target: s.ButtonTarget,
		Manifest:      *m.Clone(),
	}
}

// ApplyVersion makes v's content the frame's current content.
func (f *Frame) ApplyVersion(v Version) {
	f.Apply(&v.Manifest)
	f.CurrentVersionID = v.ID
}

// LikeResult reports the outcome of a like toggle.
type LikeResult struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

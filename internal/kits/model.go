package kits

import (
	"strings"
	"time"
)

const (
	DefaultJobTitle = "Untitled Position"
	DefaultCompany  = "Unknown Company"
)

// Status tracks where the user is with an application.
type Status string

const (
	StatusInterested Status = "Interested"
	StatusApplied    Status = "Applied"
	StatusInterview  Status = "Interview"
	StatusOffer      Status = "Offer"
	StatusRejected   Status = "Rejected"
)

var statuses = []Status{StatusInterested, StatusApplied, StatusInterview, StatusOffer, StatusRejected}

// ParseStatus matches s case-insensitively against the known statuses.
// Empty input yields StatusInterested.
func ParseStatus(s string) (Status, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return StatusInterested, true
	}
	for _, st := range statuses {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

// Field names one of the three generated documents.
type Field string

const (
	FieldCoverLetter   Field = "coverLetter"
	FieldResume        Field = "resume"
	FieldFollowUpEmail Field = "followUpEmail"
)

// Fields lists the mirrored documents in a stable order.
var Fields = []Field{FieldCoverLetter, FieldResume, FieldFollowUpEmail}

// ParseField validates a document field name.
func ParseField(s string) (Field, bool) {
	for _, f := range Fields {
		if s == string(f) {
			return f, true
		}
	}
	return "", false
}

// OriginalInput is the request that produced a kit.
type OriginalInput struct {
	CV             string `json:"cv"`
	JobDescription string `json:"jobDescription"`
	Formality      string `json:"formality"`
}

// Locators reference the mirrored copy of each document.
type Locators struct {
	CoverLetter   string `json:"coverLetter,omitempty"`
	Resume        string `json:"resume,omitempty"`
	FollowUpEmail string `json:"followUpEmail,omitempty"`
}

func (l Locators) get(f Field) string {
	switch f {
	case FieldCoverLetter:
		return l.CoverLetter
	case FieldResume:
		return l.Resume
	case FieldFollowUpEmail:
		return l.FollowUpEmail
	}
	return ""
}

func (l *Locators) set(f Field, v string) {
	switch f {
	case FieldCoverLetter:
		l.CoverLetter = v
	case FieldResume:
		l.Resume = v
	case FieldFollowUpEmail:
		l.FollowUpEmail = v
	}
}

// Kit is a persisted application kit.
type Kit struct {
	ID            string
	UserID        string
	JobTitle      string
	Company       string
	Status        Status
	CoverLetter   string
	Resume        string
	FollowUpEmail string
	Original      *OriginalInput
	Locators      Locators
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Content returns the text of one document.
func (k Kit) Content(f Field) string {
	switch f {
	case FieldCoverLetter:
		return k.CoverLetter
	case FieldResume:
		return k.Resume
	case FieldFollowUpEmail:
		return k.FollowUpEmail
	}
	return ""
}

func (k *Kit) setContent(f Field, v string) {
	switch f {
	case FieldCoverLetter:
		k.CoverLetter = v
	case FieldResume:
		k.Resume = v
	case FieldFollowUpEmail:
		k.FollowUpEmail = v
	}
}

func (k Kit) clone() Kit {
	if k.Original != nil {
		orig := *k.Original
		k.Original = &orig
	}
	return k
}

// NewKit is the caller-supplied content of a kit to create.
type NewKit struct {
	JobTitle      string
	Company       string
	Status        string
	CoverLetter   string
	Resume        string
	FollowUpEmail string
	Original      *OriginalInput
}

// Update carries the whitelisted mutable fields. Nil means unchanged.
type Update struct {
	Status        *string
	JobTitle      *string
	Company       *string
	CoverLetter   *string
	Resume        *string
	FollowUpEmail *string
}

func (u Update) content(f Field) *string {
	switch f {
	case FieldCoverLetter:
		return u.CoverLetter
	case FieldResume:
		return u.Resume
	case FieldFollowUpEmail:
		return u.FollowUpEmail
	}
	return nil
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

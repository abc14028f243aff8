package kits

import "time"

// KitResponse is the outward-facing representation of a kit.
type KitResponse struct {
	ID            string         `json:"id"`
	JobTitle      string         `json:"jobTitle"`
	Company       string         `json:"company"`
	Status        Status         `json:"status"`
	CoverLetter   string         `json:"coverLetter"`
	Resume        string         `json:"resume"`
	FollowUpEmail string         `json:"followUpEmail"`
	OriginalInput *OriginalInput `json:"originalInput,omitempty"`
	Files         Locators       `json:"files"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// ToResponse converts a kit for API output.
func ToResponse(kit Kit) KitResponse {
	return KitResponse{
		ID:            kit.ID,
		JobTitle:      kit.JobTitle,
		Company:       kit.Company,
		Status:        kit.Status,
		CoverLetter:   kit.CoverLetter,
		Resume:        kit.Resume,
		FollowUpEmail: kit.FollowUpEmail,
		OriginalInput: kit.Original,
		Files:         kit.Locators,
		CreatedAt:     kit.CreatedAt,
		UpdatedAt:     kit.UpdatedAt,
	}
}

type createKitRequest struct {
	JobTitle      string         `json:"jobTitle"`
	Company       string         `json:"company"`
	Status        string         `json:"status"`
	CoverLetter   string         `json:"coverLetter"`
	Resume        string         `json:"resume"`
	FollowUpEmail string         `json:"followUpEmail"`
	OriginalInput *OriginalInput `json:"originalInput"`
}

func (r createKitRequest) toNewKit() NewKit {
	return NewKit{
		JobTitle:      r.JobTitle,
		Company:       r.Company,
		Status:        r.Status,
		CoverLetter:   r.CoverLetter,
		Resume:        r.Resume,
		FollowUpEmail: r.FollowUpEmail,
		Original:      r.OriginalInput,
	}
}

type updateKitRequest struct {
	Status        *string `json:"status"`
	JobTitle      *string `json:"jobTitle"`
	Company       *string `json:"company"`
	CoverLetter   *string `json:"coverLetter"`
	Resume        *string `json:"resume"`
	FollowUpEmail *string `json:"followUpEmail"`
}

func (r updateKitRequest) toUpdate() Update {
	return Update{
		Status:        r.Status,
		JobTitle:      r.JobTitle,
		Company:       r.Company,
		CoverLetter:   r.CoverLetter,
		Resume:        r.Resume,
		FollowUpEmail: r.FollowUpEmail,
	}
}

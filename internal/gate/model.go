package gate

import "time"

// UsageRecord tracks kit creations for one anonymous identity.
type UsageRecord struct {
	IdentityHash string    `json:"identityHash"`
	Count        int       `json:"count"`
	FirstAccess  time.Time `json:"firstAccess"`
	LastAccess   time.Time `json:"lastAccess"`
}

// Status answers whether an identity already created a kit.
type Status struct {
	HasCreated bool `json:"hasCreatedPack"`
	Count      int  `json:"count"`
	// Verified is false when the store could not be read and the answer is
	// the fail-open default.
	Verified bool `json:"-"`
}

// Reason explains a Decision.
type Reason string

const (
	ReasonFirstUse      Reason = "verified_first_use"
	ReasonRepeat        Reason = "verified_repeat"
	ReasonFailOpen      Reason = "fail_open"
	ReasonAuthenticated Reason = "authenticated"
)

// Decision is the outcome of RecordCreation.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}

package generation

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrGeneration   = errors.New("generation failed")
)

// Channel identifies one of the three generated documents.
type Channel string

const (
	ChannelResume        Channel = "resume"
	ChannelCoverLetter   Channel = "coverLetter"
	ChannelFollowUpEmail Channel = "followUpEmail"
)

// Channels lists the channels in evaluation order.
var Channels = []Channel{ChannelResume, ChannelCoverLetter, ChannelFollowUpEmail}

// GenerationError reports the first channel that failed.
type GenerationError struct {
	Channel Channel
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Channel, e.Err)
}

func (e *GenerationError) Unwrap() []error { return []error{ErrGeneration, e.Err} }

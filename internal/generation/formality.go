package generation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Formality is the five-level tone setting for generated documents.
type Formality int

const (
	Informal Formality = iota + 1
	Casual
	Neutral
	Formal
	Professional
)

var formalityNames = map[Formality]string{
	Informal:     "informal",
	Casual:       "casual",
	Neutral:      "neutral",
	Formal:       "formal",
	Professional: "professional",
}

// Adjective is the phrase used inside prompts.
func (f Formality) Adjective() string {
	switch f {
	case Informal:
		return "relaxed and conversational"
	case Casual:
		return "friendly and approachable"
	case Formal:
		return "formal and polished"
	case Professional:
		return "highly professional and authoritative"
	default:
		return "balanced and professional"
	}
}

func (f Formality) String() string {
	if name, ok := formalityNames[f]; ok {
		return name
	}
	return formalityNames[Neutral]
}

func (f Formality) Valid() bool {
	return f >= Informal && f <= Professional
}

// ParseFormality accepts a level name or a digit 1..5. Empty input is Neutral.
func ParseFormality(raw string) (Formality, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return Neutral, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		f := Formality(n)
		if !f.Valid() {
			return 0, fmt.Errorf("%w: formality %d out of range", ErrInvalidInput, n)
		}
		return f, nil
	}
	for f, name := range formalityNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown formality %q", ErrInvalidInput, raw)
}

// UnmarshalJSON accepts either a name or a number.
func (f *Formality) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		parsed, err := ParseFormality(strconv.Itoa(n))
		if err != nil {
			return err
		}
		*f = parsed
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: formality must be a string or number", ErrInvalidInput)
	}
	parsed, err := ParseFormality(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func (f Formality) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

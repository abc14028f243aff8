package model

// StructuredResume is the canonical résumé document renderers consume.
// Every field is optional; slices are never nil after Coerce.
type StructuredResume struct {
	Summary                string              `json:"summary"`
	PersonalInformation    PersonalInformation `json:"personalInformation"`
	ProfessionalExperience []Experience        `json:"professionalExperience"`
	Education              []Education         `json:"education"`
	SkillsAndInterests     SkillsAndInterests  `json:"skillsAndInterests"`

	// Parsed is false when the source text was not JSON and the document is
	// a placeholder carrying the raw text in Summary.
	Parsed bool `json:"-"`
}

type PersonalInformation struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	LinkedIn string `json:"linkedin"`
	Website  string `json:"website"`
}

type Experience struct {
	Company          string           `json:"company"`
	Position         string           `json:"position"`
	Location         string           `json:"location"`
	Duration         string           `json:"duration"`
	Responsibilities []Responsibility `json:"responsibilities"`
}

// Responsibility groups bullet points under an optional category.
type Responsibility struct {
	Category string   `json:"category"`
	Details  []string `json:"details"`
}

type Education struct {
	Institution    string   `json:"institution"`
	Degree         string   `json:"degree"`
	Concentrations []string `json:"concentrations"`
	Achievements   []string `json:"achievements"`
}

type SkillsAndInterests struct {
	Interests []string  `json:"interests"`
	Languages Languages `json:"languages"`
	Technical []string  `json:"technical"`
}

type Languages struct {
	Native []string `json:"native"`
	Fluent []string `json:"fluent"`
}

// IsEmpty reports whether the document carries no content at all.
func (r StructuredResume) IsEmpty() bool {
	return r.Summary == "" &&
		r.PersonalInformation == (PersonalInformation{}) &&
		len(r.ProfessionalExperience) == 0 &&
		len(r.Education) == 0 &&
		len(r.SkillsAndInterests.Interests) == 0 &&
		len(r.SkillsAndInterests.Technical) == 0 &&
		len(r.SkillsAndInterests.Languages.Native) == 0 &&
		len(r.SkillsAndInterests.Languages.Fluent) == 0
}

func (r *StructuredResume) fillEmpty() {
	if r.ProfessionalExperience == nil {
		r.ProfessionalExperience = []Experience{}
	}
	for i := range r.ProfessionalExperience {
		if r.ProfessionalExperience[i].Responsibilities == nil {
			r.ProfessionalExperience[i].Responsibilities = []Responsibility{}
		}
		for j := range r.ProfessionalExperience[i].Responsibilities {
			r.ProfessionalExperience[i].Responsibilities[j].Details = nonNil(r.ProfessionalExperience[i].Responsibilities[j].Details)
		}
	}
	if r.Education == nil {
		r.Education = []Education{}
	}
	for i := range r.Education {
		r.Education[i].Concentrations = nonNil(r.Education[i].Concentrations)
		r.Education[i].Achievements = nonNil(r.Education[i].Achievements)
	}
	r.SkillsAndInterests.Interests = nonNil(r.SkillsAndInterests.Interests)
	r.SkillsAndInterests.Technical = nonNil(r.SkillsAndInterests.Technical)
	r.SkillsAndInterests.Languages.Native = nonNil(r.SkillsAndInterests.Languages.Native)
	r.SkillsAndInterests.Languages.Fluent = nonNil(r.SkillsAndInterests.Languages.Fluent)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

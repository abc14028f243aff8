package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const maxFallbackSummary = 8000

// Coerce maps model output onto a StructuredResume. It never fails: strings
// and arrays are accepted interchangeably, a single object stands in for a
// one-element list, and text that holds no JSON object yields a placeholder
// document with Parsed=false and the text as its summary.
func Coerce(text string) StructuredResume {
	obj, ok := decodeObject(text)
	if !ok {
		r := StructuredResume{Summary: fallbackSummary(text)}
		r.fillEmpty()
		return r
	}

	r := StructuredResume{
		Parsed:                 true,
		Summary:                joinText(obj["summary"]),
		PersonalInformation:    coercePersonal(obj["personalInformation"]),
		ProfessionalExperience: coerceExperience(obj["professionalExperience"]),
		Education:              coerceEducation(obj["education"]),
		SkillsAndInterests:     coerceSkills(obj["skillsAndInterests"]),
	}
	r.fillEmpty()
	return r
}

// decodeObject accepts bare JSON, fenced JSON, or JSON embedded in prose.
func decodeObject(text string) (map[string]any, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, false
	}
	s = stripFence(s)

	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil && obj != nil {
		return obj, true
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err == nil && obj != nil {
		return obj, true
	}
	return nil, false
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

func fallbackSummary(text string) string {
	s := strings.TrimSpace(text)
	if len(s) > maxFallbackSummary {
		s = s[:maxFallbackSummary]
	}
	return s
}

func coercePersonal(v any) PersonalInformation {
	m, _ := v.(map[string]any)
	return PersonalInformation{
		Name:     scalar(m["name"]),
		Email:    scalar(m["email"]),
		Phone:    scalar(m["phone"]),
		Location: scalar(m["location"]),
		LinkedIn: scalar(m["linkedin"]),
		Website:  scalar(m["website"]),
	}
}

func coerceExperience(v any) []Experience {
	var out []Experience
	for _, item := range objects(v) {
		out = append(out, Experience{
			Company:          scalar(item["company"]),
			Position:         scalar(item["position"]),
			Location:         scalar(item["location"]),
			Duration:         scalar(item["duration"]),
			Responsibilities: coerceResponsibilities(item["responsibilities"]),
		})
	}
	return out
}

func coerceResponsibilities(v any) []Responsibility {
	var out []Responsibility
	var loose []string
	for _, item := range list(v) {
		switch t := item.(type) {
		case map[string]any:
			out = append(out, Responsibility{
				Category: scalar(t["category"]),
				Details:  strs(t["details"]),
			})
		default:
			if s := scalar(t); s != "" {
				loose = append(loose, s)
			}
		}
	}
	if len(loose) > 0 {
		out = append(out, Responsibility{Details: loose})
	}
	return out
}

func coerceEducation(v any) []Education {
	var out []Education
	for _, item := range objects(v) {
		out = append(out, Education{
			Institution:    scalar(item["institution"]),
			Degree:         scalar(item["degree"]),
			Concentrations: strs(item["concentrations"]),
			Achievements:   strs(item["achievements"]),
		})
	}
	return out
}

func coerceSkills(v any) SkillsAndInterests {
	m, _ := v.(map[string]any)
	s := SkillsAndInterests{
		Interests: strs(m["interests"]),
		Technical: strs(m["technical"]),
	}
	switch langs := m["languages"].(type) {
	case map[string]any:
		s.Languages.Native = strs(langs["native"])
		s.Languages.Fluent = strs(langs["fluent"])
	default:
		s.Languages.Fluent = strs(langs)
	}
	return s
}

// list treats a scalar or object as a one-element list.
func list(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

func objects(v any) []map[string]any {
	var out []map[string]any
	for _, item := range list(v) {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// strs flattens strings, numbers, and nested arrays; comma lists in a single
// string are kept as one entry.
func strs(v any) []string {
	var out []string
	for _, item := range list(v) {
		switch t := item.(type) {
		case []any:
			out = append(out, strs(t)...)
		default:
			if s := scalar(t); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		return joinText(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func joinText(v any) string {
	switch t := v.(type) {
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := scalar(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case map[string]any:
		return ""
	default:
		return scalar(t)
	}
}

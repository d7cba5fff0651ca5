// Package applicant holds the candidate's form data and its shape checks.
package applicant

import (
	"strings"

	"github.com/spigell/resume-gate/internal/policy"
)

// Profile is the application form as the candidate filled it in. Values stay
// strings because they arrive from form fields and prompts.
type Profile struct {
	Name        string   `json:"name" mapstructure:"name" validate:"required"`
	Email       string   `json:"email" mapstructure:"email" validate:"required,email"`
	GitHub      string   `json:"github" mapstructure:"github" validate:"omitempty,url"`
	College     string   `json:"college" mapstructure:"college"`
	PassingYear string   `json:"passingYear" mapstructure:"passing-year" validate:"omitempty,passing_year"`
	Address     string   `json:"address" mapstructure:"address"`
	Age         string   `json:"age" mapstructure:"age" validate:"omitempty,age"`
	Phone       string   `json:"phone" mapstructure:"phone" validate:"omitempty,phone"`
	Skills      []string `json:"skills" mapstructure:"skills"`
}

// Fields returns the values the eligibility policy checks.
func (p Profile) Fields() policy.Fields {
	return policy.Fields{
		Name:        p.Name,
		Email:       p.Email,
		GitHub:      p.GitHub,
		Education:   p.College,
		PassingYear: p.PassingYear,
	}
}

// Normalize trims every value and de-duplicates skills, keeping the first
// spelling of each.
func (p Profile) Normalize() Profile {
	out := Profile{
		Name:        strings.TrimSpace(p.Name),
		Email:       strings.TrimSpace(p.Email),
		GitHub:      strings.TrimSpace(p.GitHub),
		College:     strings.TrimSpace(p.College),
		PassingYear: strings.TrimSpace(p.PassingYear),
		Address:     strings.TrimSpace(p.Address),
		Age:         strings.TrimSpace(p.Age),
		Phone:       strings.TrimSpace(p.Phone),
		Skills:      []string{},
	}

	for _, skill := range p.Skills {
		out = out.AddSkill(skill)
	}

	return out
}

// AddSkill appends a skill unless it is blank or already listed.
func (p Profile) AddSkill(skill string) Profile {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return p
	}
	for _, existing := range p.Skills {
		if strings.EqualFold(existing, skill) {
			return p
		}
	}

	skills := make([]string, 0, len(p.Skills)+1)
	skills = append(skills, p.Skills...)
	p.Skills = append(skills, skill)
	return p
}

// SkillsLine joins skills the way the hiring backend expects them.
func (p Profile) SkillsLine() string {
	return strings.Join(p.Skills, ", ")
}

// SplitSkills parses a comma separated skills value.
func SplitSkills(value string) []string {
	var skills []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			skills = append(skills, part)
		}
	}
	return skills
}

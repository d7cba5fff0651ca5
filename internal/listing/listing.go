// Package listing describes the single job the gate accepts applications for.
package listing

import (
	"strings"
)

type Listing struct {
	Title            string   `json:"title" mapstructure:"title"`
	Role             string   `json:"role" mapstructure:"role"`
	Department       string   `json:"department" mapstructure:"department"`
	Location         string   `json:"location" mapstructure:"location"`
	Type             string   `json:"type" mapstructure:"type"`
	Salary           string   `json:"salary" mapstructure:"salary"`
	Experience       string   `json:"experience" mapstructure:"experience"`
	Description      string   `json:"description" mapstructure:"description"`
	Requirements     []string `json:"requirements" mapstructure:"requirements"`
	Responsibilities []string `json:"responsibilities" mapstructure:"responsibilities"`
	Benefits         []string `json:"benefits" mapstructure:"benefits"`
	// PromptDetails adds requirements and responsibilities to the text sent to
	// the model. Off by default, so the model sees the description only.
	PromptDetails bool `json:"-" mapstructure:"prompt-details"`
}

// Default is the listing used when the configuration names none.
func Default() Listing {
	return Listing{
		Title:      "Senior Full Stack Developer",
		Role:       "Software Engineering",
		Department: "Technology",
		Location:   "Banglore,India",
		Type:       "Full-time",
		Salary:     "₹80,000 - ₹120,000 per year",
		Experience: "0-1 years",
		Description: "We are seeking a talented Senior Full Stack Developer to join our dynamic team. " +
			"You will be responsible for developing and maintaining web applications using modern technologies " +
			"and frameworks including React.js, Node.js, JavaScript, TypeScript, Docker, AWS, MongoDB, PostgreSQL, " +
			"Git, CI/CD pipelines, and testing frameworks. This is an exciting opportunity to work with cutting-edge " +
			"technologies and contribute to innovative projects that impact millions of users worldwide.",
		Requirements: []string{
			"Proficiency in React.js, Node.js, and modern JavaScript",
			"Experience with frontend frameworks (Next.js, Vue, or Angular)",
			"Strong backend development with Node.js and Express/NestJS",
			"Database experience (MongoDB, PostgreSQL, or MySQL)",
			"RESTful API design and development",
			"Experience with state management (Redux/Context API)",
			"Cloud platforms (AWS/Azure/GCP) and containerization (Docker)",
			"Version control with Git and CI/CD pipelines",
			"Knowledge of web security and performance optimization",
		},
		Responsibilities: []string{
			"Design and develop scalable web applications",
			"Collaborate with cross-functional teams to define and implement new features",
			"Write clean, maintainable, and efficient code",
			"Participate in code reviews and maintain coding standards",
			"Troubleshoot and debug applications",
			"Stay up-to-date with emerging technologies and industry trends",
		},
		Benefits: []string{
			"Competitive salary and equity package",
			"Comprehensive health, dental, and vision insurance",
			"Flexible work arrangements and remote options",
			"Professional development budget",
			"Unlimited PTO policy",
			"State-of-the-art equipment and workspace",
		},
	}
}

// Merge returns l with every empty value taken from fallback.
func (l Listing) Merge(fallback Listing) Listing {
	pick := func(v, alt string) string {
		if strings.TrimSpace(v) == "" {
			return alt
		}
		return v
	}
	pickList := func(v, alt []string) []string {
		if len(v) == 0 {
			return alt
		}
		return v
	}

	return Listing{
		Title:            pick(l.Title, fallback.Title),
		Role:             pick(l.Role, fallback.Role),
		Department:       pick(l.Department, fallback.Department),
		Location:         pick(l.Location, fallback.Location),
		Type:             pick(l.Type, fallback.Type),
		Salary:           pick(l.Salary, fallback.Salary),
		Experience:       pick(l.Experience, fallback.Experience),
		Description:      pick(l.Description, fallback.Description),
		Requirements:     pickList(l.Requirements, fallback.Requirements),
		Responsibilities: pickList(l.Responsibilities, fallback.Responsibilities),
		Benefits:         pickList(l.Benefits, fallback.Benefits),
		PromptDetails:    l.PromptDetails || fallback.PromptDetails,
	}
}

// PromptDescription is the job text handed to the prompt builder.
func (l Listing) PromptDescription() string {
	description := strings.TrimSpace(l.Description)
	if !l.PromptDetails {
		return description
	}

	var b strings.Builder
	b.WriteString(description)
	writeSection(&b, "Requirements", l.Requirements)
	writeSection(&b, "Responsibilities", l.Responsibilities)
	return b.String()
}

func writeSection(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n\n")
	b.WriteString(title)
	b.WriteString(":")
	for _, item := range items {
		b.WriteString("\n- ")
		b.WriteString(strings.TrimSpace(item))
	}
}

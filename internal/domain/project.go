package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ProjectStatus is PENDING before any run, otherwise the status of the
// project's latest job.
type ProjectStatus string

const ProjectStatusPending ProjectStatus = "PENDING"

func ProjectStatusFor(s JobStatus) ProjectStatus { return ProjectStatus(s) }

// Duration bounds accepted at project creation.
const (
	MinDurationSeconds = 15
	MaxDurationSeconds = 120
)

// Mood tags understood by the planner and the music engine.
type Mood string

const (
	MoodUplifting Mood = "uplifting"
	MoodEnergetic Mood = "energetic"
	MoodCalm      Mood = "calm"
	MoodModern    Mood = "modern"
	MoodPlayful   Mood = "playful"
	MoodDramatic  Mood = "dramatic"
	MoodCorporate Mood = "corporate"
)

func (m Mood) Valid() bool {
	switch m {
	case MoodUplifting, MoodEnergetic, MoodCalm, MoodModern, MoodPlayful, MoodDramatic, MoodCorporate:
		return true
	}
	return false
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Project is a user's ad request.
type Project struct {
	ID              string
	UserID          string
	Title           string
	Brief           string
	BrandName       string
	PrimaryColor    string
	SecondaryColor  string
	Mood            Mood
	DurationSeconds int
	TargetAudience  string
	ProductImageURL string
	Status          ProjectStatus
	CostUSD         float64
	Outputs         map[string]string
	StorageFolder   string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Normalize trims user input and fills the optional fields.
func (p *Project) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
	p.Brief = strings.TrimSpace(p.Brief)
	p.BrandName = strings.TrimSpace(p.BrandName)
	p.PrimaryColor = strings.ToUpper(strings.TrimSpace(p.PrimaryColor))
	p.SecondaryColor = strings.ToUpper(strings.TrimSpace(p.SecondaryColor))
	p.Mood = Mood(strings.ToLower(strings.TrimSpace(string(p.Mood))))
	p.TargetAudience = strings.TrimSpace(p.TargetAudience)
	p.ProductImageURL = strings.TrimSpace(p.ProductImageURL)
	if p.Mood == "" {
		p.Mood = MoodUplifting
	}
	if p.Status == "" {
		p.Status = ProjectStatusPending
	}
}

// Validate checks a project submitted for creation.
func (p Project) Validate() error {
	switch {
	case p.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidProject)
	case p.Brief == "":
		return fmt.Errorf("%w: brief is required", ErrInvalidProject)
	case p.BrandName == "":
		return fmt.Errorf("%w: brand_name is required", ErrInvalidProject)
	case !hexColor.MatchString(p.PrimaryColor):
		return fmt.Errorf("%w: primary_color must be #RRGGBB", ErrInvalidProject)
	case p.SecondaryColor != "" && !hexColor.MatchString(p.SecondaryColor):
		return fmt.Errorf("%w: secondary_color must be #RRGGBB", ErrInvalidProject)
	case !p.Mood.Valid():
		return fmt.Errorf("%w: unknown mood %q", ErrInvalidProject, p.Mood)
	case p.DurationSeconds < MinDurationSeconds || p.DurationSeconds > MaxDurationSeconds:
		return fmt.Errorf("%w: duration must be between %d and %d seconds", ErrInvalidProject, MinDurationSeconds, MaxDurationSeconds)
	}
	return nil
}

// BrandColors lists the configured colors, primary first.
func (p Project) BrandColors() []string {
	colors := []string{}
	if p.PrimaryColor != "" {
		colors = append(colors, p.PrimaryColor)
	}
	if p.SecondaryColor != "" {
		colors = append(colors, p.SecondaryColor)
	}
	return colors
}

// StorageFolderFor is the object-store prefix owning a project's media.
func StorageFolderFor(projectID string) string {
	return "projects/" + projectID
}

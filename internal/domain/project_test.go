package domain

import (
	"errors"
	"testing"
)

func validProject() Project {
	p := Project{
		Title:           "Serum launch",
		Brief:           "Premium skincare serum",
		BrandName:       "LuxaSkin",
		PrimaryColor:    "#f5e6d3",
		SecondaryColor:  "#2C3E50",
		Mood:            "Uplifting",
		DurationSeconds: 30,
	}
	p.Normalize()
	return p
}

func TestProjectValidate(t *testing.T) {
	if err := validProject().Validate(); err != nil {
		t.Fatalf("valid project rejected: %v", err)
	}

	cases := map[string]func(*Project){
		"missing title": func(p *Project) { p.Title = "" },
		"missing brief": func(p *Project) { p.Brief = "" },
		"missing brand": func(p *Project) { p.BrandName = "" },
		"bad primary":   func(p *Project) { p.PrimaryColor = "red" },
		"bad secondary": func(p *Project) { p.SecondaryColor = "#12345" },
		"unknown mood":  func(p *Project) { p.Mood = "sleepy" },
		"too short":     func(p *Project) { p.DurationSeconds = 12 },
		"too long":      func(p *Project) { p.DurationSeconds = 121 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := validProject()
			mutate(&p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidProject) {
				t.Fatalf("expected ErrInvalidProject, got %v", err)
			}
		})
	}
}

func TestProjectNormalize(t *testing.T) {
	p := validProject()
	if p.Mood != MoodUplifting || p.PrimaryColor != "#F5E6D3" || p.Status != ProjectStatusPending {
		t.Fatalf("unexpected normalized project %+v", p)
	}
	if got := p.BrandColors(); len(got) != 2 || got[0] != "#F5E6D3" {
		t.Fatalf("BrandColors = %v", got)
	}

	var empty Project
	empty.Normalize()
	if empty.Mood != MoodUplifting {
		t.Fatalf("default mood = %q", empty.Mood)
	}
}

func TestStorageFolderFor(t *testing.T) {
	if got := StorageFolderFor("abc"); got != "projects/abc" {
		t.Fatalf("StorageFolderFor = %q", got)
	}
}

package domain

import "strings"

const (
	FontSerif   = "serif"
	FontSans    = "sans"
	FontDisplay = "display"

	LayoutDark  = "dark"
	LayoutLight = "light"

	SectionBentoGrid = "bento-grid"
	SectionPricing   = "pricing"
)

// DemoConfig describes a generated landing-page mockup. The model output is
// loosely typed; Normalize fills in whatever it left out.
type DemoConfig struct {
	AppName      string    `json:"appName"`
	PrimaryColor string    `json:"primaryColor"`
	FontStyle    string    `json:"fontStyle"`
	LayoutMode   string    `json:"layoutMode"`
	Hero         *Hero     `json:"hero"`
	Navigation   []string  `json:"navigation"`
	Sections     []Section `json:"sections"`
}

type Hero struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	ImageSearch string `json:"imageSearch"`
}

// Section is one block of the mockup. Which payload is set depends on Type:
// bento-grid sections carry Items, pricing sections carry Plans.
type Section struct {
	Type  string        `json:"type"`
	Title string        `json:"title,omitempty"`
	Items []SectionItem `json:"items,omitempty"`
	Plans []PricingPlan `json:"plans,omitempty"`
}

type SectionItem struct {
	Title string `json:"title"`
	Desc  string `json:"desc"`
	Size  string `json:"size,omitempty"`
}

type PricingPlan struct {
	Name     string   `json:"name"`
	Price    string   `json:"price"`
	Features []string `json:"features"`
	Popular  bool     `json:"popular"`
}

// Normalize replaces absent fields with the renderer's fallback values.
// A missing font is display and an unrecognised one renders as sans. Any
// layout mode other than light is rendered dark.
func (c *DemoConfig) Normalize() {
	if strings.TrimSpace(c.AppName) == "" {
		c.AppName = "Neural Link"
	}
	if strings.TrimSpace(c.PrimaryColor) == "" {
		c.PrimaryColor = "#0ea5e9"
	}
	switch c.FontStyle {
	case FontSerif, FontSans, FontDisplay:
	case "":
		c.FontStyle = FontDisplay
	default:
		c.FontStyle = FontSans
	}
	if c.LayoutMode != LayoutLight {
		c.LayoutMode = LayoutDark
	}
	if c.Hero == nil {
		c.Hero = &Hero{
			Title:       "Autonomous Architecture",
			Subtitle:    "Connecting vision to scalable systems.",
			ImageSearch: "tech architecture",
		}
	}
	if strings.TrimSpace(c.Hero.Title) == "" {
		c.Hero.Title = "Synthesis Error"
	}
	if strings.TrimSpace(c.Hero.Subtitle) == "" {
		c.Hero.Subtitle = "System architecture generated with minor data losses."
	}
	if len(c.Navigation) == 0 {
		c.Navigation = []string{"Home", "About", "Systems"}
	}
	if c.Sections == nil {
		c.Sections = []Section{}
	}
	for i := range c.Sections {
		s := &c.Sections[i]
		if strings.TrimSpace(s.Title) != "" {
			continue
		}
		switch s.Type {
		case SectionBentoGrid:
			s.Title = "Core Matrix"
		case SectionPricing:
			s.Title = "Engagement"
		}
	}
}

// PreviewHost is the fake address shown in the mockup's browser chrome.
func (c *DemoConfig) PreviewHost() string {
	name := c.AppName
	if strings.TrimSpace(name) == "" {
		name = "Neural Link"
	}
	return strings.Join(strings.Fields(strings.ToLower(name)), "-") + ".skh.dev"
}

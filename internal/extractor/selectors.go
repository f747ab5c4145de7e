package extractor

import (
	"errors"
	"strings"
)

// DefaultURL is the results listing scraped when nothing else is configured.
const DefaultURL = "https://smashrun.com/mlinder314/list/"

// Selectors names the elements of the results table. Class fields hold a
// single class name, tag fields a single tag name.
type Selectors struct {
	ContainerClass string `yaml:"container_class"`
	BodyTag        string `yaml:"body_tag"`
	RowTag         string `yaml:"row_tag"`
	IDAttr         string `yaml:"id_attr"`
	DateClass      string `yaml:"date_class"`
	DistanceClass  string `yaml:"distance_class"`
	DurationClass  string `yaml:"duration_class"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		ContainerClass: "run-data",
		BodyTag:        "tbody",
		RowTag:         "tr",
		IDAttr:         "id",
		DateClass:      "date",
		DistanceClass:  "distance",
		DurationClass:  "duration",
	}
}

// WithDefaults fills every empty field from DefaultSelectors.
func (s Selectors) WithDefaults() Selectors {
	d := DefaultSelectors()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&s.ContainerClass, d.ContainerClass)
	fill(&s.BodyTag, d.BodyTag)
	fill(&s.RowTag, d.RowTag)
	fill(&s.IDAttr, d.IDAttr)
	fill(&s.DateClass, d.DateClass)
	fill(&s.DistanceClass, d.DistanceClass)
	fill(&s.DurationClass, d.DurationClass)
	return s
}

func (s Selectors) Validate() error {
	for _, v := range []string{s.ContainerClass, s.DateClass, s.DistanceClass, s.DurationClass} {
		if strings.ContainsAny(v, " .#[]>") {
			return errors.New("class selectors take a single class name, got " + v)
		}
	}
	for _, v := range []string{s.BodyTag, s.RowTag} {
		if strings.ContainsAny(v, " .#[]>") {
			return errors.New("tag selectors take a single tag name, got " + v)
		}
	}
	return nil
}

func byClass(class string) string {
	return "." + class
}

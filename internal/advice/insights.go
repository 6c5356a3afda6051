package advice

import "strings"

// KeyInsights groups advice lines by the section they appear under.
type KeyInsights struct {
	Summary         string `json:"summary"`
	Recommendations string `json:"recommendations"`
	Risks           string `json:"risks"`
	NextSteps       string `json:"next_steps"`
}

type insightSection int

const (
	sectionSummary insightSection = iota
	sectionRecommendations
	sectionRisks
	sectionNextSteps
)

var sectionMarkers = []struct {
	section insightSection
	words   []string
}{
	{sectionRecommendations, []string{"recommendation", "suggestion", "advice"}},
	{sectionRisks, []string{"risk", "warning", "concern"}},
	{sectionNextSteps, []string{"next", "action", "step"}},
}

// ExtractKeyInsights splits advice text into sections. A line mentioning a
// section marker switches the current section and is itself dropped, as are
// bold header lines.
func ExtractKeyInsights(text string) KeyInsights {
	var parts [4][]string
	current := sectionSummary

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if s, ok := markerSection(strings.ToLower(line)); ok {
			current = s
			continue
		}
		if strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**") {
			continue
		}
		parts[current] = append(parts[current], line)
	}

	return KeyInsights{
		Summary:         strings.Join(parts[sectionSummary], " "),
		Recommendations: strings.Join(parts[sectionRecommendations], " "),
		Risks:           strings.Join(parts[sectionRisks], " "),
		NextSteps:       strings.Join(parts[sectionNextSteps], " "),
	}
}

func markerSection(lower string) (insightSection, bool) {
	for _, m := range sectionMarkers {
		for _, w := range m.words {
			if strings.Contains(lower, w) {
				return m.section, true
			}
		}
	}
	return sectionSummary, false
}

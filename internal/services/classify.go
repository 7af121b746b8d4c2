package services

import (
	"strings"
	"time"

	"github.com/finsup/finops/internal/domain"
)

type labelRule struct {
	category    string
	subCategory string
	match       func(label string) bool
}

func contains(sub string) func(string) bool {
	return func(label string) bool { return strings.Contains(label, sub) }
}

func exact(words ...string) func(string) bool {
	return func(label string) bool {
		for _, w := range words {
			if label == w {
				return true
			}
		}
		return false
	}
}

// labelRules is the fixed priority table. Rules are tried in order against
// lower-cased labels and the first match wins; label order within a record
// never outranks rule order.
var labelRules = []labelRule{
	{"Enhancement", ".", contains("enhancement")},
	{"BAU", ".", contains("bau")},
	{"Admin", "Audit", contains("audit")},
	{"Admin", "Meeting", contains("meeting")},
	{"Vacation", "Vacation", exact("holiday", "vacation")},
}

// ClassifyLabels buckets a label set into (category, sub-category).
func ClassifyLabels(labels []string) (string, string) {
	normalized := make([]string, 0, len(labels))
	for _, l := range labels {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(l)))
	}
	for _, rule := range labelRules {
		for _, l := range normalized {
			if rule.match(l) {
				return rule.category, rule.subCategory
			}
		}
	}
	return domain.Unknown, domain.Unknown
}

// areaByProject maps tracking-system project names onto reporting areas.
var areaByProject = map[string]string{
	"TransUnion PeopleSoft": "PeopleSoft",
	"Coupa":                 "Coupa",
	"OneStream":             "OneStream/PS",
}

func AreaFor(projectName string) string {
	if area, ok := areaByProject[projectName]; ok {
		return area
	}
	return domain.Unknown
}

// ModuleFor picks the first component name, the convention the component
// list encodes.
func ModuleFor(components []string) string {
	if len(components) == 0 || components[0] == "" {
		return domain.Unknown
	}
	return components[0]
}

// WeekStart returns the Monday beginning the ISO week containing t,
// truncated to midnight UTC.
func WeekStart(t time.Time) time.Time {
	back := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -back)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

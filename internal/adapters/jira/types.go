package jira

import "github.com/finsup/finops/internal/domain"

type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self"`
	Fields IssueFields `json:"fields"`
}

type IssueFields struct {
	Project    Project       `json:"project"`
	IssueType  NamedEntity   `json:"issuetype"`
	Labels     []string      `json:"labels"`
	Components []NamedEntity `json:"components"`
}

type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

type NamedEntity struct {
	Name string `json:"name"`
}

// Metadata converts the wire issue into the run's canonical metadata shape.
func (i Issue) Metadata() domain.IssueMetadata {
	components := make([]string, 0, len(i.Fields.Components))
	for _, c := range i.Fields.Components {
		components = append(components, c.Name)
	}
	return domain.IssueMetadata{
		IssueKey:    i.Key,
		ProjectKey:  i.Fields.Project.Key,
		ProjectName: i.Fields.Project.Name,
		IssueType:   i.Fields.IssueType.Name,
		Labels:      i.Fields.Labels,
		Components:  components,
	}
}

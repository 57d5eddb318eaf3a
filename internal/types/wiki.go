package types

import "encoding/json"

// WikiPage is one generated documentation page.
type WikiPage struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Content      string   `json:"content"`
	FilePaths    []string `json:"filePaths"`
	Importance   string   `json:"importance"`
	RelatedPages []string `json:"relatedPages"`
}

// UnmarshalJSON accepts both camelCase and snake_case field names; the
// service answers with either depending on the endpoint.
func (p *WikiPage) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID                string   `json:"id"`
		Title             string   `json:"title"`
		Description       string   `json:"description"`
		Content           string   `json:"content"`
		FilePaths         []string `json:"filePaths"`
		FilePathsSnake    []string `json:"file_paths"`
		Importance        string   `json:"importance"`
		RelatedPages      []string `json:"relatedPages"`
		RelatedPagesSnake []string `json:"related_pages"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = WikiPage{
		ID:           raw.ID,
		Title:        raw.Title,
		Description:  raw.Description,
		Content:      raw.Content,
		FilePaths:    firstNonNil(raw.FilePaths, raw.FilePathsSnake),
		Importance:   raw.Importance,
		RelatedPages: firstNonNil(raw.RelatedPages, raw.RelatedPagesSnake),
	}
	return nil
}

// WikiSection groups pages for navigation.
type WikiSection struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Pages       []string `json:"pages"`
	Subsections []string `json:"subsections,omitempty"`
}

// WikiStructure is the generated wiki tree. The orchestrator does not look
// inside it beyond page ids.
type WikiStructure struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Pages       []WikiPage    `json:"pages"`
	Sections    []WikiSection `json:"sections,omitempty"`
}

func (s *WikiStructure) PageIDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.Pages))
	for _, p := range s.Pages {
		ids = append(ids, p.ID)
	}
	return ids
}

func firstNonNil(values ...[]string) []string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

package types

// WikiTaskRequest starts a remote wiki generation task.
type WikiTaskRequest struct {
	Key      GenerationKey
	RepoType string
	RepoURL  string
	Token    string
}

// WikiResult is the payload of a task status once pages exist.
type WikiResult struct {
	WikiStructure  *WikiStructure      `json:"wiki_structure"`
	GeneratedPages map[string]WikiPage `json:"generated_pages"`
}

// WikiStatusReport is one answer of the task status endpoint. Progress is
// nil when the service did not report it.
type WikiStatusReport struct {
	Status   string      `json:"status"`
	Message  string      `json:"message"`
	Error    string      `json:"error"`
	Progress []string    `json:"progress"`
	Result   *WikiResult `json:"result"`
}

// ProcessedProject is one previously generated wiki listed by the service.
type ProcessedProject struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	Name        string `json:"name"`
	RepoType    string `json:"repo_type"`
	SubmittedAt int64  `json:"submitted_at"`
	Language    string `json:"language"`
}

// LanguageConfig lists the languages the service can generate content in.
type LanguageConfig struct {
	SupportedLanguages map[string]string `json:"supported_languages"`
	Default            string            `json:"default"`
}

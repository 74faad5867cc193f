package fetch

// Entry is the outcome for one dataset.
type Entry struct {
	Name     string `json:"name" yaml:"name"`
	Path     string `json:"path" yaml:"path"`
	Status   string `json:"status" yaml:"status"`
	Size     string `json:"size,omitempty" yaml:"size,omitempty"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Output is the structured output of the fetch command.
type Output struct {
	Status           string  `json:"status" yaml:"status"`
	Error            string  `json:"error,omitempty" yaml:"error,omitempty"`
	Datasets         []Entry `json:"datasets" yaml:"datasets"`
	TotalSize        string  `json:"total_size,omitempty" yaml:"total_size,omitempty"`
	TotalTimeSeconds float64 `json:"total_time_seconds,omitempty" yaml:"total_time_seconds,omitempty"`
}

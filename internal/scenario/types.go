package scenario

// Case is one assertion: a proposed action and the verdict it must get.
type Case struct {
	Kind      string `yaml:"kind"` // command or file_access
	Command   string `yaml:"command,omitempty"`
	Path      string `yaml:"path,omitempty"`
	Operation string `yaml:"operation,omitempty"` // read, write, edit (default read)
	Expect    string `yaml:"expect"`
}

// Scenario is a named collection of rule assertions.
type Scenario struct {
	Name  string `yaml:"name"`
	Cases []Case `yaml:"cases"`
}

// CaseResult is the outcome of evaluating one case.
type CaseResult struct {
	Index    int    `json:"index"`
	Passed   bool   `json:"passed"`
	Kind     string `json:"kind"`
	Resource string `json:"resource"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Reason   string `json:"reason,omitempty"`
}

// RunResult is the outcome of running all cases in one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []CaseResult `json:"cases"`
}

package model

// VisibleTestResult is the per-test detail reported for visible test cases.
type VisibleTestResult struct {
	Input     string  `json:"input"`
	Expected  string  `json:"expected"`
	Stdout    string  `json:"stdout"`
	Stderr    string  `json:"stderr"`
	Passed    bool    `json:"passed"`
	ElapsedMs float64 `json:"elapsed_ms"`
}

// JudgeMetrics aggregates run statistics across all executed test cases.
type JudgeMetrics struct {
	MaxElapsedMs float64 `json:"max_elapsed_ms"`
}

// JudgeResult is the verdict for one submission against one task.
// Passed is true only when every visible and hidden test passed.
type JudgeResult struct {
	TaskID            string              `json:"task_id"`
	Passed            bool                `json:"passed"`
	VisibleTests      []VisibleTestResult `json:"visible_tests"`
	HiddenTestsPassed int                 `json:"hidden_tests_passed"`
	Metrics           JudgeMetrics        `json:"metrics"`
}

// Observe folds one test execution into the aggregate metrics.
func (m *JudgeMetrics) Observe(elapsedMs float64) {
	if elapsedMs > m.MaxElapsedMs {
		m.MaxElapsedMs = elapsedMs
	}
}

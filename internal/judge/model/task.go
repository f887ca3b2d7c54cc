package model

// TestCase is a single input/expected-output pair.
type TestCase struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// TestGroups splits a task's test cases into the visible set, whose details
// are echoed back to the submitter, and the hidden set, which is only
// reported as an aggregate count.
type TestGroups struct {
	Visible []TestCase `json:"visible"`
	Hidden  []TestCase `json:"hidden"`
}

// TaskTestSuite is the stored definition of one judging task.
type TaskTestSuite struct {
	TaskID string     `json:"task_id"`
	Title  string     `json:"title,omitempty"`
	Tests  TestGroups `json:"tests"`
}

// TotalTests returns the number of test cases across both groups.
func (s TaskTestSuite) TotalTests() int {
	return len(s.Tests.Visible) + len(s.Tests.Hidden)
}

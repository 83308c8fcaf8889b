package models

// TestStatus represents the state of a simulated discovery or extraction test
type TestStatus string

const (
	TestStatusIdle      TestStatus = ""          // Zero value = never run
	TestStatusRunning   TestStatus = "running"   // Test started, result pending
	TestStatusSuccess   TestStatus = "success"   // Canned result delivered
	TestStatusFailed    TestStatus = "failed"    // Simulated failure, retry offered
	TestStatusCancelled TestStatus = "cancelled" // Abandoned before a result was applied
)

// String implements fmt.Stringer for logging
func (s TestStatus) String() string {
	if s == "" {
		return "idle"
	}
	return string(s)
}

// IsValid returns true if the status can be stored on a test result
func (s TestStatus) IsValid() bool {
	switch s {
	case TestStatusRunning, TestStatusSuccess, TestStatusFailed, TestStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true once no further transition can happen
func (s TestStatus) IsTerminal() bool {
	return s == TestStatusSuccess || s == TestStatusFailed || s == TestStatusCancelled
}

// StepStatus represents how a wizard step is presented in the step list
type StepStatus string

const (
	StepStatusUnset    StepStatus = ""         // Zero value = unknown
	StepStatusLocked   StepStatus = "locked"   // Cannot be jumped to yet
	StepStatusOpen     StepStatus = "open"     // Reachable but not completed
	StepStatusCurrent  StepStatus = "current"  // The step being edited
	StepStatusComplete StepStatus = "complete" // Marked complete by Next
)

// String implements fmt.Stringer for logging
func (s StepStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known operational value
func (s StepStatus) IsValid() bool {
	switch s {
	case StepStatusLocked, StepStatusOpen, StepStatusCurrent, StepStatusComplete:
		return true
	}
	return false
}

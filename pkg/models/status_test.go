package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestStatus_String(t *testing.T) {
	tests := []struct {
		status TestStatus
		want   string
	}{
		{TestStatusIdle, "idle"},
		{TestStatusRunning, "running"},
		{TestStatusSuccess, "success"},
		{TestStatusFailed, "failed"},
		{TestStatusCancelled, "cancelled"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

func TestTestStatus_IsValid(t *testing.T) {
	tests := []struct {
		status TestStatus
		want   bool
	}{
		{TestStatusRunning, true},
		{TestStatusSuccess, true},
		{TestStatusFailed, true},
		{TestStatusCancelled, true},
		{TestStatusIdle, false},
		{TestStatus("arbitrary"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.IsValid(), "TestStatus(%q).IsValid()", string(tt.status))
	}
}

func TestTestStatus_IsTerminal(t *testing.T) {
	assert.False(t, TestStatusIdle.IsTerminal())
	assert.False(t, TestStatusRunning.IsTerminal())
	assert.True(t, TestStatusSuccess.IsTerminal())
	assert.True(t, TestStatusFailed.IsTerminal())
	assert.True(t, TestStatusCancelled.IsTerminal())
}

func TestStepStatus_String(t *testing.T) {
	tests := []struct {
		status StepStatus
		want   string
	}{
		{StepStatusUnset, "unset"},
		{StepStatusLocked, "locked"},
		{StepStatusOpen, "open"},
		{StepStatusCurrent, "current"},
		{StepStatusComplete, "complete"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

func TestStepStatus_IsValid(t *testing.T) {
	tests := []struct {
		status StepStatus
		want   bool
	}{
		{StepStatusLocked, true},
		{StepStatusOpen, true},
		{StepStatusCurrent, true},
		{StepStatusComplete, true},
		{StepStatusUnset, false},
		{StepStatus("arbitrary"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.IsValid(), "StepStatus(%q).IsValid()", string(tt.status))
	}
}

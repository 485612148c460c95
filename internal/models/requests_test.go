package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func int64Ptr(v int64) *int64 { return &v }

func TestTrackMetricsRequestValidate(t *testing.T) {
	valid := TrackMetricsRequest{
		AttemptID:   "attempt-1",
		TotalLines:  100,
		LinesFromAI: 40,
		TestsPassed: 3,
		TestsTotal:  5,
		SessionTime: 600,
	}

	tests := []struct {
		name    string
		mutate  func(r *TrackMetricsRequest)
		wantErr bool
	}{
		{name: "Valid", mutate: func(r *TrackMetricsRequest) {}},
		{name: "MissingAttempt", mutate: func(r *TrackMetricsRequest) { r.AttemptID = "" }, wantErr: true},
		{name: "AILinesExceedTotal", mutate: func(r *TrackMetricsRequest) { r.LinesFromAI = 101 }, wantErr: true},
		{name: "PassedExceedsTotal", mutate: func(r *TrackMetricsRequest) { r.TestsPassed = 6 }, wantErr: true},
		{name: "NegativeWeight", mutate: func(r *TrackMetricsRequest) {
			r.ChecklistItems = []ChecklistItem{{ID: "a", Label: "a", Weight: -1, Category: ChecklistTesting}}
		}, wantErr: true},
		{name: "BreakdownWithinSession", mutate: func(r *TrackMetricsRequest) {
			r.AIUsageTime = int64Ptr(200)
			r.ManualCodingTime = int64Ptr(300)
			r.DebugTime = int64Ptr(100)
		}},
		{name: "BreakdownExceedsSession", mutate: func(r *TrackMetricsRequest) {
			r.AIUsageTime = int64Ptr(400)
			r.DebugTime = int64Ptr(300)
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMoreSevere(t *testing.T) {
	assert.Equal(t, ClassificationBlocked, MoreSevere(ClassificationWarning, ClassificationBlocked))
	assert.Equal(t, ClassificationWarning, MoreSevere(ClassificationWarning, ClassificationSafe))
	assert.Equal(t, ClassificationSafe, MoreSevere(ClassificationSafe, ClassificationSafe))
}

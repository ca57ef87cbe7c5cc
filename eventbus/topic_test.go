package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BrewBlox/brewblox-service/errors"
)

func TestValidateTopic(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		wantErr bool
	}{
		{"simple", "brewcast/state/spark-one", false},
		{"single segment", "brewcast", false},
		{"empty", "", true},
		{"empty segment", "brewcast//state", true},
		{"leading slash", "/brewcast/state", true},
		{"trailing slash", "brewcast/state/", true},
		{"plus wildcard", "brewcast/+/state", true},
		{"hash wildcard", "brewcast/state/#", true},
		{"embedded wildcard", "brewcast/sta+te", true},
		{"dot in segment", "brewcast/state.spark", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTopic(tt.topic)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrInvalidTopic)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFilter(t *testing.T) {
	tests := []struct {
		name    string
		filter  string
		wantErr bool
	}{
		{"concrete", "brewcast/state/spark-one", false},
		{"plus middle", "brewcast/+/spark-one", false},
		{"plus leading", "+/state/spark-one", false},
		{"multiple plus", "+/+/+", false},
		{"hash final", "brewcast/state/#", false},
		{"hash only", "#", false},
		{"empty", "", true},
		{"empty segment", "brewcast//#", true},
		{"hash not final", "brewcast/#/state", true},
		{"partial plus", "brewcast/spark+/state", true},
		{"partial hash", "brewcast/state#", true},
		{"dot in segment", "brew.cast/#", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilter(tt.filter)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrInvalidTopic)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		want   bool
	}{
		// Exact matching
		{"brewcast/state", "brewcast/state", true},
		{"brewcast/state", "brewcast/history", false},
		{"brewcast/state", "brewcast", false},
		{"brewcast", "brewcast/state", false},

		// Single-level wildcard matches exactly one segment
		{"brewcast/+/spark", "brewcast/state/spark", true},
		{"brewcast/+/spark", "brewcast/history/spark", true},
		{"brewcast/+/spark", "brewcast/spark", false},
		{"brewcast/+/spark", "brewcast/state/deep/spark", false},
		{"+/state", "brewcast/state", true},
		{"+", "brewcast", true},
		{"+", "brewcast/state", false},

		// Multi-level wildcard requires at least one trailing segment
		{"brewcast/#", "brewcast/state", true},
		{"brewcast/#", "brewcast/state/spark/deep", true},
		{"brewcast/#", "brewcast", false},
		{"brewcast/#", "other/state", false},
		{"#", "brewcast", true},
		{"#", "brewcast/state/spark", true},

		// Combined wildcards
		{"brewcast/+/#", "brewcast/state/spark", true},
		{"brewcast/+/#", "brewcast/state", false},
	}

	for _, tt := range tests {
		t.Run(tt.filter+" vs "+tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.filter, tt.topic))
		})
	}
}

func TestSubjectTranslation(t *testing.T) {
	assert.Equal(t, "brewcast.state.spark", topicToSubject("brewcast/state/spark"))

	assert.Equal(t, "brewcast.state.spark", filterToSubject("brewcast/state/spark"))
	assert.Equal(t, "brewcast.*.spark", filterToSubject("brewcast/+/spark"))
	assert.Equal(t, "brewcast.state.>", filterToSubject("brewcast/state/#"))
	assert.Equal(t, ">", filterToSubject("#"))
	assert.Equal(t, "*.>", filterToSubject("+/#"))

	assert.Equal(t, "brewcast/state/spark", subjectToTopic("brewcast.state.spark"))
}

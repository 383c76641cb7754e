package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "single broker",
			input:    []string{"kafka-1:9092"},
			expected: []string{"kafka-1:9092"},
		},
		{
			name:     "trims padding around separators",
			input:    []string{"kafka-1:9092", " kafka-2:9092", "kafka-3:9092 "},
			expected: []string{"kafka-1:9092", "kafka-2:9092", "kafka-3:9092"},
		},
		{
			name:     "first occurrence wins",
			input:    []string{"kafka-1:9092", "kafka-2:9092", "kafka-1:9092"},
			expected: []string{"kafka-1:9092", "kafka-2:9092"},
		},
		{
			name:     "drops empty elements from trailing commas",
			input:    []string{"kafka-1:9092", "", "  "},
			expected: []string{"kafka-1:9092"},
		},
		{
			name:     "case is significant",
			input:    []string{"Kafka:9092", "kafka:9092"},
			expected: []string{"Kafka:9092", "kafka:9092"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

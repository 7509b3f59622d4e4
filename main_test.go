package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLanguages(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "eng", []string{"eng"}},
		{"plus separated", "eng+hin", []string{"eng", "hin"}},
		{"comma separated", "eng,hin,tam", []string{"eng", "hin", "tam"}},
		{"mixed separators with spaces", " eng , hin+tam ", []string{"eng", "hin", "tam"}},
		{"stray separators", "+eng,,hin+", []string{"eng", "hin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLanguages(tt.value))
		})
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("PII_TEST_STRING", "configured")
	assert.Equal(t, "configured", getEnvOrDefault("PII_TEST_STRING", "fallback"))
	assert.Equal(t, "fallback", getEnvOrDefault("PII_TEST_STRING_UNSET", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("PII_TEST_INT", "8")
	assert.Equal(t, 8, getEnvInt("PII_TEST_INT", 4))
	assert.Equal(t, 4, getEnvInt("PII_TEST_INT_UNSET", 4))
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("PII_TEST_FLOAT", "2.5")
	assert.Equal(t, 2.5, getEnvFloat("PII_TEST_FLOAT", 0))
	assert.Equal(t, 0.0, getEnvFloat("PII_TEST_FLOAT_UNSET", 0))
}

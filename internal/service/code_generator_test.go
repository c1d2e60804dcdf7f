package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeGeneratorNeverEmptyAndUppercase(t *testing.T) {
	gen := NewCodeGenerator()

	code := gen.Generate("Programación en Go", "Ana Pérez")
	require.NotEmpty(t, code)
	assert.Equal(t, strings.ToUpper(code), code)
}

func TestCodeGeneratorPrefixes(t *testing.T) {
	gen := NewCodeGenerator()

	cases := []struct {
		name   string
		course string
		prefix string
	}{
		{"two words", "Data Engineering", "DAEN"},
		{"accented words", "Introducción a la IA", "INA"},
		{"single long word", "Kubernetes", "KUBERN"},
		{"single short word", "Go", "GO"},
		{"digits only", "101 2024", "CT"},
		{"empty", "", "CT"},
		{"whitespace", "   ", "CT"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code := gen.Generate(tc.course, "Student")
			assert.True(t, strings.HasPrefix(code, tc.prefix), "code %q should start with %q", code, tc.prefix)
		})
	}
}

func TestCodeGeneratorIgnoresStudentName(t *testing.T) {
	gen := NewCodeGenerator()

	a := gen.Generate("Cloud Computing", "Alice")
	b := gen.Generate("Cloud Computing", "Bob")
	assert.Equal(t, a[:4], b[:4])
}

func TestCodeGeneratorUniqueness(t *testing.T) {
	gen := NewCodeGenerator()

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		code := gen.Generate("Distributed Systems", "Student")
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate code generated: %s", code)
		}
		seen[code] = struct{}{}
	}
}

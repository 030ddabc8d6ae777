package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormaliseKeywords(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"lowercases and sorts", []string{"Dog", "beach"}, []string{"beach", "dog"}},
		{"dedupes", []string{"dog", "DOG", " dog "}, []string{"dog"}},
		{"drops empty", []string{"", "  ", "cat"}, []string{"cat"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormaliseKeywords(tt.in))
		})
	}
}

func TestExtraction_Record(t *testing.T) {
	e := Extraction{URI: "u", Keywords: []string{"k"}, Embedding: []float32{1, 2}}
	r := e.Record()

	assert.Equal(t, "u", r.URI)
	assert.Equal(t, []string{"k"}, r.Keywords)
	assert.Equal(t, []float32{1, 2}, r.Embedding)
}

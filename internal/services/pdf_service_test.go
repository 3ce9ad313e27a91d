package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostProcessMarkdown_HyphenBreaks(t *testing.T) {
	got := PostProcessMarkdown("thermo-\ndynamics is fun")
	assert.Equal(t, "thermodynamics is fun", got)
}

func TestPostProcessMarkdown_SpaceRuns(t *testing.T) {
	got := PostProcessMarkdown("too   many\t\tspaces")
	assert.Equal(t, "too many spaces", got)
}

func TestPostProcessMarkdown_BlankLineCap(t *testing.T) {
	got := PostProcessMarkdown("one\n\n\n\n\ntwo")
	assert.Equal(t, "one\n\ntwo", got)
}

func TestPostProcessMarkdown_Bullets(t *testing.T) {
	got := PostProcessMarkdown("• first\n• second")
	assert.Equal(t, "- first\n- second", got)
}

func TestPostProcessMarkdown_ReplacementChars(t *testing.T) {
	got := PostProcessMarkdown("bro�ken")
	assert.Equal(t, "broken", got)
}

func TestPostProcessMarkdown_TrimsResult(t *testing.T) {
	got := PostProcessMarkdown("  \n\nbody text \n\n ")
	assert.Equal(t, "body text", got)
}

func TestExtract_InvalidPDF(t *testing.T) {
	s := NewPDFService()
	_, err := s.Extract([]byte("not a pdf"))
	assert.Error(t, err)
}

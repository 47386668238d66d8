package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTags_UnionAndDedup(t *testing.T) {
	body := "Some notes about #Go and #go programming.\n\nAlso #Go again."
	tags := ExtractTags([]string{"work", "Go"}, body)
	assert.Equal(t, []string{"work", "Go", "go"}, tags)
}

func TestExtractTags_IgnoresCodeFences(t *testing.T) {
	body := "intro #real\n\n```\n#notatag inside code\n```\n\nmore #real text"
	tags := ExtractTags(nil, body)
	assert.Equal(t, []string{"real"}, tags)
}

func TestExtractTags_NoTags(t *testing.T) {
	tags := ExtractTags(nil, "plain text with no hashtags at all")
	assert.Empty(t, tags)
}

func TestExtractLinks_BasicTarget(t *testing.T) {
	body := "See [[Project Plan]] for details."
	links := ExtractLinks(body)
	assert.Equal(t, []string{"Project Plan"}, links)
}

func TestExtractLinks_DiscardsAnchorAndAlias(t *testing.T) {
	body := "Refs: [[Note#Section]] and [[Other Note|display text]]."
	links := ExtractLinks(body)
	assert.Equal(t, []string{"Note", "Other Note"}, links)
}

func TestExtractLinks_Multiple(t *testing.T) {
	body := "[[A]] then [[B]] and finally [[C]]."
	links := ExtractLinks(body)
	assert.Equal(t, []string{"A", "B", "C"}, links)
}

func TestExtractLinks_None(t *testing.T) {
	assert.Nil(t, ExtractLinks("no links here"))
}

func TestJoinTags(t *testing.T) {
	assert.Equal(t, "work,personal", JoinTags([]string{"work", "personal"}))
	assert.Equal(t, "", JoinTags(nil))
}

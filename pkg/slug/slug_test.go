// Copyright (c) 2026 zco.mx. All rights reserved.
// Author: zcomix developers <dev@zco.mx>

package slug_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zcomx/zcomix/pkg/slug"
)

/*
TestFrom verifies the slug transformation pipeline.
*/
func TestFrom(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "First Last", "first-last"},
		{"accented", "Éloïse Côté", "eloise-cote"},
		{"punctuation", "My Book: The Sequel!", "my-book-the-sequel"},
		{"multi_space", "a   b", "a-b"},
		{"leading_trailing", " -hello- ", "hello"},
		{"numbers", "MyBook 001", "mybook-001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slug.From(tt.input))
		})
	}
}

/*
TestName verifies the case-preserving creator slug form.
*/
func TestName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"spaces_dropped", "First Last", "FirstLast"},
		{"accents_removed", "Éloïse Côté", "EloiseCote"},
		{"punctuation_dropped", "J. R. R. Tolkien", "JRRTolkien"},
		{"digits_kept", "Agent 99", "Agent99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slug.Name(tt.input))
		})
	}
}

/*
TestFold verifies accent-folded, case-insensitive comparison keys.
*/
func TestFold(t *testing.T) {
	assert.Equal(t, slug.Fold("Café"), slug.Fold("CAFÉ"))
	assert.Equal(t, "my book", slug.Fold("My BOOK"))
	assert.NotEqual(t, slug.Fold("my book"), slug.Fold("my books"))
}

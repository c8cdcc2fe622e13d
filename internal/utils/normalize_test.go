package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Jane Doe":               "jane-doe",
		"  José  Álvarez ":       "jose-alvarez",
		"Dr. Anna_Maria O'Neil":  "dr-anna-maria-oneil",
		"---":                    "",
		"":                       "",
		"Müller & Söhne GmbH":    "muller-sohne-gmbh",
		"user.name+tag@corp.com": "user-nametagcorp-com",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "Slugify(%q)", in)
	}
}

func TestSlugifyTruncates(t *testing.T) {
	s := Slugify(strings.Repeat("ab ", 30))
	assert.LessOrEqual(t, len(s), SlugMaxLen)
	assert.False(t, strings.HasSuffix(s, "-"))
}

func TestValidSlug(t *testing.T) {
	assert.True(t, ValidSlug("jane-doe"))
	assert.True(t, ValidSlug("abc"))
	assert.False(t, ValidSlug("ab"))
	assert.False(t, ValidSlug("Jane"))
	assert.False(t, ValidSlug("-jane"))
	assert.False(t, ValidSlug("jane-"))
	assert.False(t, ValidSlug("jane--doe"))
	assert.False(t, ValidSlug("admin"))
	assert.False(t, ValidSlug(strings.Repeat("a", SlugMaxLen+1)))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@corp.com", NormalizeEmail(" Jane@Corp.COM "))
}

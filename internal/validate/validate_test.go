package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name    string  `validate:"required,max=5"`
	Email   string  `validate:"omitempty,email"`
	Kind    string  `validate:"omitempty,oneof=a b"`
	Website *string `validate:"omitempty,url"`
}

type tagged struct {
	PhotoURL  string `json:"photoUrl,omitempty" validate:"omitempty,url"`
	FirstName string `json:"firstName" validate:"required"`
	Secret    string `json:"-" validate:"required"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sample{Name: "ann"}))

	err := Struct(sample{})
	require.Error(t, err)
	assert.Equal(t, "name is required", err.Error())

	bad := "not a url"
	err = Struct(sample{Name: "toolong", Email: "bad", Kind: "c", Website: &bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name must be at most 5 characters")
	assert.Contains(t, err.Error(), "email must be a valid email")
	assert.Contains(t, err.Error(), "kind must be one of: a b")
	assert.Contains(t, err.Error(), "website must be a valid URL")
}

func TestStructNilPointerSkipped(t *testing.T) {
	assert.NoError(t, Struct(sample{Name: "ann", Website: nil}))
}

func TestStructUsesJSONNames(t *testing.T) {
	err := Struct(tagged{PhotoURL: "nope"})
	require.Error(t, err)
	assert.Equal(t, "photoUrl must be a valid URL; firstName is required; secret is required", err.Error())
}

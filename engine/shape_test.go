package engine

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typefold/typefold/descriptor"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		typ  *descriptor.Type
		want Shape
	}{
		{"primitive", descriptor.Int, ShapePrimitive},
		{"type variable", descriptor.Var("T"), ShapeTypeVariable},
		{"list", descriptor.List(descriptor.Int), ShapeContainer},
		{"map", descriptor.StringMap(descriptor.Int), ShapeContainer},
		{"record", descriptor.Record("User", descriptor.F("name", descriptor.String)), ShapeNamedProduct},
		{"tuple", descriptor.Tuple(descriptor.Int, descriptor.String), ShapeAnonymousProduct},
		{"union", descriptor.Union(descriptor.Int, descriptor.String), ShapeAnonymousUnion},
		{"optional", descriptor.Optional(descriptor.Int), ShapeAnonymousUnion},
		{"sealed", descriptor.Sealed("Shape", descriptor.V("c", descriptor.Record("Circle"))), ShapeNamedUnion},
		{"enum", descriptor.Enum("Color", descriptor.M("Red", "red")), ShapeEnum},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Classify(tc.typ, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyRecipeTakesPrecedence(t *testing.T) {
	hasRecipe := func(name string) bool { return name == "User" }

	user := descriptor.Record("User", descriptor.F("name", descriptor.String))
	got, err := Classify(user, hasRecipe)
	require.NoError(t, err)
	assert.Equal(t, ShapeCustom, got, "a registered recipe overrides the structural rule")

	other := descriptor.Record("Other")
	got, err = Classify(other, hasRecipe)
	require.NoError(t, err)
	assert.Equal(t, ShapeNamedProduct, got)
}

func TestClassifyOpaqueWithoutRecipe(t *testing.T) {
	_, err := Classify(descriptor.Opaque("Wrapper", descriptor.Int), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestClassifyOpaqueWithRecipe(t *testing.T) {
	hasRecipe := func(name string) bool { return name == "Wrapper" }

	got, err := Classify(descriptor.Opaque("Wrapper", descriptor.Int), hasRecipe)
	require.NoError(t, err)
	assert.Equal(t, ShapeCustom, got)
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "named-product", ShapeNamedProduct.String())
	assert.Equal(t, "anonymous-union", ShapeAnonymousUnion.String())
	assert.Equal(t, "unknown", Shape(99).String())
}

package descriptor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typefold/typefold/descriptor"
)

func TestIdentityForms(t *testing.T) {
	user := descriptor.Record("User",
		descriptor.F("name", descriptor.String),
	)

	tests := []struct {
		name string
		typ  *descriptor.Type
		want descriptor.Identity
	}{
		{"primitive", descriptor.Int, "int"},
		{"decimal", descriptor.Decimal, "decimal"},
		{"type variable", descriptor.Var("T"), "$T"},
		{"list", descriptor.List(descriptor.Int), "list<int>"},
		{"map", descriptor.StringMap(descriptor.Float), "map<string,float>"},
		{"tuple", descriptor.Tuple(descriptor.Int, descriptor.String), "tuple<int,string>"},
		{"union", descriptor.Union(descriptor.Int, descriptor.String), "union<int|string>"},
		{"optional", descriptor.Optional(descriptor.Int), "union<int|nil>"},
		{"record", user, "record:User"},
		{"nested", descriptor.List(descriptor.Optional(user)), "list<union<record:User|nil>>"},
		{"enum", descriptor.Enum("Color", descriptor.M("Red", "red")), "enum:Color"},
		{"opaque", descriptor.Opaque("Wrapper", descriptor.Int), "opaque:Wrapper[int]"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.typ.Identity())
		})
	}
}

func TestIdentityIgnoresRecordFields(t *testing.T) {
	a := descriptor.Record("User", descriptor.F("name", descriptor.String))
	b := descriptor.Record("User", descriptor.F("age", descriptor.Int))

	assert.Equal(t, a.Identity(), b.Identity(), "names identify records regardless of fields")
}

func TestIdentityTotalOnRecursiveTypes(t *testing.T) {
	node := descriptor.Record("Node", descriptor.F("value", descriptor.Int))
	node.AddField(descriptor.F("next", descriptor.Optional(node)))

	assert.Equal(t, descriptor.Identity("record:Node"), node.Identity())

	next := node.Fields[1].Type
	assert.Equal(t, descriptor.Identity("union<record:Node|nil>"), next.Identity())
}

func TestIdentityNamedKindsDoNotShadowStructural(t *testing.T) {
	rec := descriptor.Record("int", descriptor.F("n", descriptor.Int))
	assert.NotEqual(t, descriptor.Int.Identity(), rec.Identity(),
		"a record named after a primitive keeps its own identity")

	sealed := descriptor.Sealed("int", descriptor.V("x", rec))
	assert.NotEqual(t, rec.Identity(), sealed.Identity(),
		"same name under different kinds stays distinct")
}

func TestIdentityUnderResolvesVariables(t *testing.T) {
	box := descriptor.Generic("Box", []string{"T"},
		descriptor.F("item", descriptor.Var("T")),
	)
	inst := descriptor.Instantiate(box, descriptor.Var("T"))

	resolve := func(name string) *descriptor.Type {
		if name == "T" {
			return descriptor.Int
		}
		return nil
	}

	assert.Equal(t, descriptor.Identity("record:Box[int]"), descriptor.IdentityUnder(inst, resolve))
	assert.Equal(t, descriptor.Identity("record:Box[$T]"), inst.Identity(), "unresolved parameters stay symbolic")
}

func TestSubstituteResolvesArguments(t *testing.T) {
	box := descriptor.Generic("Box", []string{"T"},
		descriptor.F("item", descriptor.Var("T")),
	)
	inst := descriptor.Instantiate(box, descriptor.Var("T"))

	resolve := func(name string) *descriptor.Type {
		if name == "T" {
			return descriptor.Int
		}
		return nil
	}

	bound := descriptor.Substitute(inst, resolve)
	assert.Equal(t, descriptor.Identity("record:Box[int]"), bound.Identity())
	assert.Equal(t, descriptor.Identity("record:Box[$T]"), inst.Identity(), "the input is not mutated")

	nested := descriptor.Instantiate(box, descriptor.List(descriptor.Var("T")))
	bound = descriptor.Substitute(nested, resolve)
	assert.Equal(t, descriptor.Identity("record:Box[list<int>]"), bound.Identity())

	assert.Same(t, descriptor.Int, descriptor.Substitute(descriptor.Int, resolve),
		"nothing to resolve returns the input")
}

func TestInstantiateLeavesOriginalUntouched(t *testing.T) {
	box := descriptor.Generic("Box", []string{"T"},
		descriptor.F("item", descriptor.Var("T")),
	)

	inst := descriptor.Instantiate(box, descriptor.Int)

	assert.Empty(t, box.Args)
	require.Len(t, inst.Args, 1)
	assert.Equal(t, descriptor.Identity("record:Box[int]"), inst.Identity())
}

func TestOptionalFlattensUnions(t *testing.T) {
	u := descriptor.Union(descriptor.Int, descriptor.String)
	opt := descriptor.Optional(u)

	assert.Len(t, opt.Alts, 2, "optional of a union marks it nilable instead of nesting")
	assert.True(t, opt.Nilable)
	assert.False(t, u.Nilable, "the original union is not mutated")

	assert.Equal(t, descriptor.Identity("union<int|string|nil>"), opt.Identity())
}

func TestIsOptional(t *testing.T) {
	assert.True(t, descriptor.Optional(descriptor.Int).IsOptional())
	assert.False(t, descriptor.Union(descriptor.Int, descriptor.String).IsOptional())
	assert.False(t, descriptor.Int.IsOptional())
}

func TestSealedBuilders(t *testing.T) {
	shape := descriptor.Sealed("Shape",
		descriptor.V("circle", descriptor.Record("Circle")),
	).WithTagField("kind")
	shape.AddVariant(descriptor.V("square", descriptor.Record("Square")))

	assert.Equal(t, "kind", shape.TagField)
	require.Len(t, shape.Variants, 2)
	assert.Equal(t, "circle", shape.Variants[0].Tag)
	assert.Equal(t, "square", shape.Variants[1].Tag)
}

func TestEnumMemberMatches(t *testing.T) {
	m := descriptor.M("ReadWrite", []string{"read", "write"})

	assert.True(t, m.Matches("ReadWrite"), "matched by name")
	assert.True(t, m.Matches([]string{"read", "write"}), "non-comparable values match structurally")
	assert.False(t, m.Matches([]string{"read"}))
	assert.False(t, m.Matches("other"))
}

func TestFieldBuilders(t *testing.T) {
	req := descriptor.F("name", descriptor.String)
	assert.Nil(t, req.Default)

	def := descriptor.FDefault("active", descriptor.Bool, true)
	require.NotNil(t, def.Default)
	assert.Equal(t, true, def.Default.Value)
}

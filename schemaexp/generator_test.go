package schemaexp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typefold/typefold/descriptor"
	"github.com/typefold/typefold/schemaexp"
)

func TestSchemaForPrimitives(t *testing.T) {
	g := schemaexp.NewGenerator()

	tests := []struct {
		name   string
		typ    *descriptor.Type
		want   string
		format string
	}{
		{"bool", descriptor.Bool, "boolean", ""},
		{"int", descriptor.Int, "integer", ""},
		{"float", descriptor.Float, "number", ""},
		{"string", descriptor.String, "string", ""},
		{"decimal", descriptor.Decimal, "string", "decimal"},
		{"date", descriptor.Date, "string", "date"},
		{"time", descriptor.Time, "string", "date-time"},
		{"duration", descriptor.Duration, "string", "duration"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := g.SchemaFor(tc.typ)
			require.NoError(t, err)
			assert.Equal(t, tc.want, s.Type)
			assert.Equal(t, tc.format, s.Format)
		})
	}
}

func TestSchemaForRecord(t *testing.T) {
	g := schemaexp.NewGenerator()

	user := descriptor.Record("User",
		descriptor.F("name", descriptor.String),
		descriptor.F("email", descriptor.Optional(descriptor.String)),
		descriptor.FDefault("active", descriptor.Bool, true),
	)

	s, err := g.SchemaFor(user)
	require.NoError(t, err)
	assert.Equal(t, "#/$defs/record:User", s.Ref)

	body := g.Defs()["record:User"]
	require.NotNil(t, body)
	assert.Equal(t, "object", body.Type)
	assert.Equal(t, []string{"name"}, body.Required, "optionals and defaulted fields are not required")
	assert.Equal(t, "string", body.Properties["name"].Type)
	assert.Equal(t, true, body.Properties["active"].Default)

	email := body.Properties["email"]
	require.Len(t, email.AnyOf, 2)
	assert.Equal(t, "string", email.AnyOf[0].Type)
	assert.Equal(t, "null", email.AnyOf[1].Type)
}

func TestSchemaForContainers(t *testing.T) {
	g := schemaexp.NewGenerator()

	s, err := g.SchemaFor(descriptor.List(descriptor.Int))
	require.NoError(t, err)
	assert.Equal(t, "array", s.Type)
	assert.Equal(t, "integer", s.Items.Type)

	s, err = g.SchemaFor(descriptor.StringMap(descriptor.Float))
	require.NoError(t, err)
	assert.Equal(t, "object", s.Type)
	assert.Equal(t, "number", s.AdditionalProperties.Type)

	s, err = g.SchemaFor(descriptor.Tuple(descriptor.String, descriptor.Int))
	require.NoError(t, err)
	assert.Equal(t, "array", s.Type)
	require.Len(t, s.PrefixItems, 2)
	assert.Equal(t, "string", s.PrefixItems[0].Type)
	assert.Equal(t, "integer", s.PrefixItems[1].Type)
}

func TestSchemaForRecursiveRecord(t *testing.T) {
	g := schemaexp.NewGenerator()

	node := descriptor.Record("Node", descriptor.F("value", descriptor.Int))
	node.AddField(descriptor.F("next", descriptor.Optional(node)))

	s, err := g.SchemaFor(node)
	require.NoError(t, err)
	assert.Equal(t, "#/$defs/record:Node", s.Ref)

	body := g.Defs()["record:Node"]
	require.NotNil(t, body)

	next := body.Properties["next"]
	require.Len(t, next.AnyOf, 2)
	assert.Equal(t, "#/$defs/record:Node", next.AnyOf[0].Ref, "the recursive reference names its own definition")
	assert.Equal(t, "null", next.AnyOf[1].Type)
}

func TestSchemaForMutualRecursion(t *testing.T) {
	g := schemaexp.NewGenerator()

	a := descriptor.Record("A")
	b := descriptor.Record("B")
	a.AddField(descriptor.F("b", descriptor.Optional(b)))
	b.AddField(descriptor.F("a", descriptor.Optional(a)))

	_, err := g.SchemaFor(a)
	require.NoError(t, err)

	defs := g.Defs()
	require.Contains(t, defs, "record:A")
	require.Contains(t, defs, "record:B")
	assert.Equal(t, "#/$defs/record:A", defs["record:B"].Properties["a"].AnyOf[0].Ref)
	assert.Equal(t, "#/$defs/record:B", defs["record:A"].Properties["b"].AnyOf[0].Ref)
}

func TestSchemaForSealedUnion(t *testing.T) {
	g := schemaexp.NewGenerator()

	shape := descriptor.Sealed("Shape",
		descriptor.V("circle", descriptor.Record("Circle", descriptor.F("r", descriptor.Float))),
		descriptor.V("square", descriptor.Record("Square", descriptor.F("side", descriptor.Float))),
	).WithTagField("kind")

	s, err := g.SchemaFor(shape)
	require.NoError(t, err)
	assert.Equal(t, "#/$defs/sealed:Shape", s.Ref)

	body := g.Defs()["sealed:Shape"]
	require.NotNil(t, body)
	require.Len(t, body.OneOf, 2)
	assert.Equal(t, "#/$defs/record:Circle", body.OneOf[0].Ref)
	assert.Equal(t, "#/$defs/record:Square", body.OneOf[1].Ref)

	require.NotNil(t, body.Discriminator)
	assert.Equal(t, "kind", body.Discriminator.PropertyName)
	assert.Equal(t, "#/$defs/record:Circle", body.Discriminator.Mapping["circle"])
	assert.Equal(t, "#/$defs/record:Square", body.Discriminator.Mapping["square"])
}

func TestSchemaForEnum(t *testing.T) {
	g := schemaexp.NewGenerator()

	color := descriptor.Enum("Color",
		descriptor.M("Red", "#f00"),
		descriptor.M("Green", "#0f0"),
	)

	s, err := g.SchemaFor(color)
	require.NoError(t, err)
	assert.Equal(t, "#/$defs/Color", s.Ref)

	body := g.Defs()["Color"]
	require.NotNil(t, body)
	assert.Equal(t, "string", body.Type)
	assert.Equal(t, []any{"Red", "Green"}, body.Enum, "the wire form is the member name")
}

func TestSchemaForGenericInstantiations(t *testing.T) {
	g := schemaexp.NewGenerator()

	box := descriptor.Generic("Box", []string{"T"},
		descriptor.F("item", descriptor.Var("T")),
	)

	s, err := g.SchemaFor(descriptor.Instantiate(box, descriptor.Int))
	require.NoError(t, err)
	assert.Equal(t, "#/$defs/record:Box[int]", s.Ref)

	_, err = g.SchemaFor(descriptor.Instantiate(box, descriptor.String))
	require.NoError(t, err)

	defs := g.Defs()
	assert.Equal(t, "integer", defs["record:Box[int]"].Properties["item"].Type)
	assert.Equal(t, "string", defs["record:Box[string]"].Properties["item"].Type)
}

func TestSchemaForGenericNestedParameter(t *testing.T) {
	g := schemaexp.NewGenerator()

	box := descriptor.Generic("Box", []string{"T"},
		descriptor.F("item", descriptor.Var("T")),
	)
	pair := descriptor.Generic("Pair", []string{"T"},
		descriptor.F("a", descriptor.Var("T")),
		descriptor.F("b", descriptor.Instantiate(box, descriptor.Var("T"))),
	)

	s, err := g.SchemaFor(descriptor.Instantiate(pair, descriptor.Int))
	require.NoError(t, err)
	assert.Equal(t, "#/$defs/record:Pair[int]", s.Ref)

	// The inner Box is instantiated with the enclosing type parameter; its
	// definition must be stored under the bound identity the field's $ref
	// points at.
	defs := g.Defs()
	require.Contains(t, defs, "record:Box[int]")
	assert.Equal(t, "#/$defs/record:Box[int]", defs["record:Pair[int]"].Properties["b"].Ref)
	assert.Equal(t, "integer", defs["record:Box[int]"].Properties["item"].Type)

	// A second instantiation adds its own definitions without clobbering
	// the first one's.
	_, err = g.SchemaFor(descriptor.Instantiate(pair, descriptor.String))
	require.NoError(t, err)

	defs = g.Defs()
	assert.Equal(t, "integer", defs["record:Box[int]"].Properties["item"].Type)
	assert.Equal(t, "string", defs["record:Box[string]"].Properties["item"].Type)
}

func TestDocumentIsSelfContained(t *testing.T) {
	g := schemaexp.NewGenerator()

	node := descriptor.Record("Node", descriptor.F("value", descriptor.Int))
	node.AddField(descriptor.F("next", descriptor.Optional(node)))

	doc, err := g.Document(node)
	require.NoError(t, err)

	assert.Equal(t, "#/$defs/record:Node", doc.Ref)
	require.Contains(t, doc.Defs, "record:Node")
	assert.Equal(t, "integer", doc.Defs["record:Node"].Properties["value"].Type)
}

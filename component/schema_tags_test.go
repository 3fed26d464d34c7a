package component

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/filestreams/errors"
)

func TestParseSchemaTag(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		want    SchemaDirectives
		wantErr bool
	}{
		{
			name: "basic string",
			tag:  "type:string,description:Watched directory,category:basic",
			want: SchemaDirectives{Type: "string", Description: "Watched directory", Category: "basic"},
		},
		{
			name: "int with bounds",
			tag:  "type:int,description:Workers,min:0,max:64,default:1",
			want: SchemaDirectives{Type: "int", Description: "Workers", Min: intPtr(0), Max: intPtr(64), Default: "1"},
		},
		{
			name: "enum",
			tag:  "type:enum,description:Mode,enum:ref | contents | lines,default:contents",
			want: SchemaDirectives{Type: "enum", Description: "Mode", Enum: []string{"ref", "contents", "lines"}, Default: "contents"},
		},
		{
			name: "flags",
			tag:  "required,readonly,editable,hidden,type:string",
			want: SchemaDirectives{Type: "string", Required: true, ReadOnly: true, Editable: true, Hidden: true},
		},
		{name: "empty", tag: "", wantErr: true},
		{name: "missing type", tag: "description:x", wantErr: true},
		{name: "bad type", tag: "type:duration", wantErr: true},
		{name: "bad category", tag: "type:string,category:expert", wantErr: true},
		{name: "bad min", tag: "type:int,min:low", wantErr: true},
		{name: "unknown flag", tag: "type:string,secret", wantErr: true},
		{name: "unknown directive", tag: "type:string,color:red", wantErr: true},
		{name: "empty value", tag: "type:string,description:", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchemaTag(tt.tag)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsInvalid(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertDefault(t *testing.T) {
	assert.Nil(t, convertDefault(nil, "string"))
	assert.Equal(t, "x", convertDefault("x", "string"))
	assert.Equal(t, 10, convertDefault("10", "int"))
	assert.Nil(t, convertDefault("ten", "int"))
	assert.Equal(t, true, convertDefault("true", "bool"))
	assert.Nil(t, convertDefault("maybe", "bool"))
	assert.Equal(t, 2.5, convertDefault("2.5", "float"))
	assert.Equal(t, []string{".tmp", ".part"}, convertDefault(".tmp|.part", "array"))
	assert.Nil(t, convertDefault("{}", "object"))
	assert.Equal(t, 3, convertDefault(3, "int"))
}

type taggedConfig struct {
	Directory string         `json:"directory"           schema:"required,type:string,description:Directory,category:basic"`
	Mode      string         `json:"mode"                schema:"type:enum,description:Mode,enum:a|b,default:a"`
	Workers   int            `json:"workers,omitempty"   schema:"type:int,description:Workers,min:0,default:1"`
	Ports     *PortConfig    `json:"ports,omitempty"     schema:"type:ports,description:Ports"`
	NoSchema  string         `json:"no_schema"`
	Skipped   string         `json:"-"                   schema:"type:string"`
	BadTag    string         `json:"bad"                 schema:"type:nope"`
	Nested    map[string]any `json:"nested"              schema:"type:object"`
}

func TestGenerateConfigSchema(t *testing.T) {
	schema := GenerateConfigSchema(reflect.TypeOf(taggedConfig{}))

	assert.ElementsMatch(t, []string{"directory", "mode", "workers", "ports", "nested"}, keys(schema.Properties))
	assert.Equal(t, []string{"directory"}, schema.Required)

	assert.Equal(t, "basic", schema.Properties["directory"].Category)
	assert.Equal(t, "a", schema.Properties["mode"].Default)
	assert.Equal(t, []string{"a", "b"}, schema.Properties["mode"].Enum)
	assert.Equal(t, 1, schema.Properties["workers"].Default)
	assert.Equal(t, 0, *schema.Properties["workers"].Minimum)
	assert.Equal(t, "nested", schema.Properties["nested"].Description)

	ports := schema.Properties["ports"]
	require.NotEmpty(t, ports.PortFields)
	assert.True(t, ports.PortFields["subject"].Editable)
	assert.False(t, ports.PortFields["name"].Editable)

	assert.Equal(t, schema, GenerateConfigSchema(reflect.TypeOf(&taggedConfig{})))
	assert.Empty(t, GenerateConfigSchema(reflect.TypeOf("")).Properties)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func intPtr(i int) *int { return &i }

package docs

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/anoixa/image-theatre/api/common"
	"github.com/anoixa/image-theatre/api/handler/authors"
	"github.com/anoixa/image-theatre/api/handler/movies"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type swaggerDoc struct {
	Definitions map[string]struct {
		Properties map[string]json.RawMessage `json:"properties"`
	} `json:"definitions"`
}

func readDoc(t *testing.T) (string, swaggerDoc) {
	raw := SwaggerInfo.ReadDoc()
	var doc swaggerDoc
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return raw, doc
}

func jsonFieldNames(typ reflect.Type) []string {
	names := make([]string, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		name, _, _ := strings.Cut(typ.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		names = append(names, name)
	}
	return names
}

func TestResponseSchemasMatchHandlerTypes(t *testing.T) {
	_, doc := readDoc(t)

	tests := []struct {
		definition string
		typ        reflect.Type
	}{
		{"common.Response", reflect.TypeOf(common.Response{})},
		{"movies.MovieResponse", reflect.TypeOf(movies.MovieResponse{})},
		{"movies.AttachmentResponse", reflect.TypeOf(movies.AttachmentResponse{})},
		{"authors.AuthorResponse", reflect.TypeOf(authors.AuthorResponse{})},
	}

	for _, tt := range tests {
		t.Run(tt.definition, func(t *testing.T) {
			def, ok := doc.Definitions[tt.definition]
			require.True(t, ok, "definition %s is missing", tt.definition)

			documented := make([]string, 0, len(def.Properties))
			for name := range def.Properties {
				documented = append(documented, name)
			}
			assert.ElementsMatch(t, jsonFieldNames(tt.typ), documented)
		})
	}
}

func TestReferencedDefinitionsExist(t *testing.T) {
	raw, doc := readDoc(t)

	refs := regexp.MustCompile(`"#/definitions/([^"]+)"`).FindAllStringSubmatch(raw, -1)
	require.NotEmpty(t, refs)
	for _, ref := range refs {
		_, ok := doc.Definitions[ref[1]]
		assert.True(t, ok, "unresolved reference %s", ref[1])
	}
}

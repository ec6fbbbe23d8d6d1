// Package schema validates raw resultado.json documents against an embedded
// JSON Schema before they are parsed.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed resultado.schema.json
var resultadoSchemaJSON string

const resultadoSchemaName = "resultado.schema.json"

var (
	printer   = message.NewPrinter(language.English)
	resultado = mustCompile(resultadoSchemaJSON, resultadoSchemaName)
)

func mustCompile(raw, name string) *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		panic(fmt.Sprintf("schema: parse embedded %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("schema: add %s: %v", name, err))
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("schema: compile %s: %v", name, err))
	}
	return sch
}

// Validate returns human-readable violations of the resultado.json schema,
// sorted by location. A nil result means the document is valid.
func Validate(raw []byte) []string {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return []string{fmt.Sprintf("/: invalid JSON: %v", err)}
	}

	err = resultado.Validate(inst)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("/: %v", err)}
	}

	var errs []string
	collect(ve, &errs)
	sort.Strings(errs)
	return errs
}

func collect(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/" + strings.Join(ve.InstanceLocation, "/")
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(printer)))
		return
	}
	for _, c := range ve.Causes {
		collect(c, errs)
	}
}

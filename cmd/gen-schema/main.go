package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/baserock/morph"
	"github.com/invopop/jsonschema"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gen-schema <morphology|partition>")
		os.Exit(1)
	}

	r := &jsonschema.Reflector{ExpandedStruct: true}

	var schema *jsonschema.Schema
	switch os.Args[1] {
	case "morphology":
		schema = r.Reflect(&morph.Morphology{})
	case "partition":
		schema = r.Reflect(&morph.PartitionDocument{})
	default:
		fmt.Fprintf(os.Stderr, "unknown schema %q\n", os.Args[1])
		os.Exit(1)
	}

	dt, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(string(dt))
}

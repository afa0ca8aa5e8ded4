package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the invocation result",
	Long:  `Print the JSON Schema describing the envelope printed by "skillet invoke" and returned by the HTTP API.`,
	Run: func(_ *cobra.Command, _ []string) {
		out, err := envelopeSchema()
		if err != nil {
			presenter.Error(err, "Failed to generate schema")
			os.Exit(1)
		}
		fmt.Println(string(out))
	},
}

func envelopeSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(skills.EnvelopeSchemaType())
	schema.Title = "Skill invocation result"
	return json.MarshalIndent(schema, "", "  ")
}

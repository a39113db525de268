// scripts/generate_schema.go writes the gateway DTO schema and the built-in tool schemas to schemas/.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/uslanozan/Gollama-the-Navigator/models"
	"github.com/uslanozan/Gollama-the-Navigator/tools"
)

type SharedDTOs struct {
	ChatRequest  models.ChatRequest   `json:"chat_request"`
	ChatResponse models.ChatResponse  `json:"chat_response"`
	Error        models.ErrorResponse `json:"error"`
	Tools        []models.ToolSpec    `json:"tools"`
	Message      models.Message       `json:"message"`
}

func main() {
	outputDir := "schemas"
	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		fail(err)
	}

	r := new(jsonschema.Reflector)
	r.ExpandedStruct = true
	dtoSchema, err := json.MarshalIndent(r.Reflect(&SharedDTOs{}), "", "  ")
	if err != nil {
		fail(err)
	}
	write(filepath.Join(outputDir, "gateway_schema.json"), dtoSchema)

	for _, t := range []tools.Tool{tools.DirectionsTool()} {
		var pretty any
		if err := json.Unmarshal(t.Schema, &pretty); err != nil {
			fail(err)
		}
		data, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			fail(err)
		}
		write(filepath.Join(outputDir, "tool_"+t.Name+".json"), data)
	}
}

func write(path string, data []byte) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fail(err)
	}
	absPath, _ := filepath.Abs(path)
	fmt.Println("schema written:", absPath)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "schema generation failed:", err)
	os.Exit(1)
}

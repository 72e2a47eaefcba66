// cmd/tools/request-lint/main.go
//
// Validates a submission file without archiving or dispatching anything.
// Intended for CI checks on incoming request pull requests: exit 0 when
// every item is valid, 1 when validation errors are found, 2 on
// operational failure (unreadable file, bad schema, bad registry).
package main

import (
	"flag"
	"fmt"
	"os"

	"reprocess-intake/internal/common/logger"
	"reprocess-intake/internal/intake/validator"
	"reprocess-intake/pkg/registry"
)

func main() {
	requestFile := flag.String("request-file", "", "Path to the submission request.json")
	schemaPath := flag.String("schema", "schemas/request-schema.json", "Path to the request JSON schema")
	registryPath := flag.String("registry", "configs/instrument-registry.json", "Path to the instrument registry")
	quiet := flag.Bool("quiet", false, "Suppress per-error output, report only the verdict")
	flag.Parse()

	if *requestFile == "" {
		fmt.Fprintln(os.Stderr, "usage: request-lint -request-file <path> [-schema <path>] [-registry <path>]")
		os.Exit(2)
	}

	raw, err := os.ReadFile(*requestFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: read request file: %v\n", err)
		os.Exit(2)
	}

	reg, err := registry.LoadRegistry(*registryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load instrument registry: %v\n", err)
		os.Exit(2)
	}

	v, err := validator.New(*schemaPath, reg, logger.NewNoOpLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	doc, itemErrs, err := v.Validate(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid submission: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, ie := range itemErrs {
		if !ie.HasErrors() {
			continue
		}
		failed++
		if *quiet {
			continue
		}
		fmt.Printf("request %d:\n", ie.Index)
		for _, msg := range ie.Messages() {
			fmt.Printf("  - %s\n", msg)
		}
	}

	if failed > 0 {
		fmt.Printf("%d of %d request(s) failed validation\n", failed, len(doc.Requests))
		os.Exit(1)
	}
	fmt.Printf("all %d request(s) valid\n", len(doc.Requests))
}

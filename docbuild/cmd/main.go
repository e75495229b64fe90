// Binary doc_renderer expands a YAML document with explicit
// variable substitutions and renders it as YAML or JSON.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/byte4ever/repo_publisher/docbuild"
)

type arrayFlags []string

func (af *arrayFlags) String() string {
	return ""
}

func (af *arrayFlags) Set(value string) error {
	*af = append(*af, value)
	return nil
}

func main() {
	var (
		variable arrayFlags
		input    string
		output   string
		format   string
	)

	flag.Var(
		&variable,
		"variable",
		"Variable in NAME=VALUE format (repeatable)",
	)

	flag.StringVar(
		&input, "input", "",
		"Input document file path",
	)

	flag.StringVar(
		&output, "output", "",
		"Output file path (stdout if empty)",
	)

	flag.StringVar(
		&format, "format", "yaml",
		"Output format, yaml or json",
	)

	flag.Parse()

	if input == "" {
		log.Fatal("input file is required")
	}

	by, err := os.ReadFile(input)
	if err != nil {
		log.Fatal(err)
	}

	var doc map[string]any

	if err := yaml.Unmarshal(by, &doc); err != nil {
		log.Fatal(err)
	}

	vars := make(map[string]any, len(variable))

	for _, v := range variable {
		name, value, found := strings.Cut(v, "=")
		if !found {
			log.Fatalf("variable %q is not in NAME=VALUE format", v)
		}

		vars[name] = value
	}

	tree := docbuild.FromMap(doc)

	var rendered []byte

	switch format {
	case "yaml":
		rendered, err = tree.YAML(vars)
	case "json":
		rendered, err = tree.JSON(vars)
	default:
		log.Fatalf("unknown format %q", format)
	}

	if err != nil {
		log.Fatal(err)
	}

	if output == "" {
		fmt.Print(string(rendered))
		return
	}

	if err := os.WriteFile(output, rendered, 0o644); err != nil {
		log.Fatal(err)
	}
}

// Command framelint validates frame manifests stored as JSON or YAML files.
//
//	framelint [-meta] [-json] file...
//
// Every violation of every file is printed. The exit status is 1 when any
// file is invalid or unreadable.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/R3E-Network/framestore/manifest"
)

type fileResult struct {
	File string `json:"file"`
	manifest.Result
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("framelint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	meta := fs.Bool("meta", false, "Print the <meta> tags of valid manifests")
	asJSON := fs.Bool("json", false, "Print results as a JSON array")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: framelint [-meta] [-json] file...")
		return 2
	}

	status := 0
	results := make([]fileResult, 0, fs.NArg())
	for _, path := range fs.Args() {
		res, m := lint(path)
		results = append(results, fileResult{File: path, Result: res})
		if !res.IsValid {
			status = 1
		}
		if *asJSON {
			continue
		}
		if res.IsValid {
			fmt.Fprintf(stdout, "%s: ok\n", path)
			if *meta {
				fmt.Fprint(stdout, manifest.RenderMetaTags(m))
			}
			continue
		}
		for _, msg := range res.Errors {
			fmt.Fprintf(stdout, "%s: %s\n", path, msg)
		}
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			fmt.Fprintf(stderr, "encode results: %v\n", err)
			return 2
		}
	}
	return status
}

func lint(path string) (manifest.Result, *manifest.Manifest) {
	m, err := manifest.Load(path)
	if err != nil {
		return manifest.Result{IsValid: false, Errors: []string{err.Error()}}, nil
	}
	return m.Validate(), m
}

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	scc "github.com/simple-cc/scc"
)

func main() {
	var (
		inputPath  = flag.String("input", "/dev/stdin", "Path to the Simple C source file")
		outputPath = flag.String("output", "/dev/stdout", "Path to the assembly output file")
	)
	flag.Parse()

	source, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("Can't read source file: %s", err.Error())
	}

	diags := scc.NewDiagnostics(os.Stderr)
	assembly, err := scc.Compile(source, diags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if diags.ErrorCount() > 0 {
		// Semantic errors already went to stderr; emit no assembly and
		// leave the exit code alone for the test harness to diff.
		return
	}

	if err := os.WriteFile(*outputPath, []byte(assembly), 0644); err != nil {
		log.Fatalf("Can't write output: %s", err.Error())
	}
}

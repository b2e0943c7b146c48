package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/arthur-debert/qlbundle/cmd/qlbundle"
	"github.com/arthur-debert/qlbundle/internal/version"
)

func main() {
	rootCmd := qlbundle.NewRootCmd()

	header := &doc.GenManHeader{
		Title:   "QLBUNDLE",
		Section: "1",
		Source:  "qlbundle " + version.Version,
		Manual:  "qlbundle manual",
	}

	if err := doc.GenMan(rootCmd, header, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}

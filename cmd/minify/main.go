package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/woozymasta/ecoleta/assets"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Output string `short:"o" long:"out" description:"Output directory" default:"dist"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	pages, err := assets.Render()
	if err != nil {
		log.Fatal("error render pages:", err)
	}

	if err := os.MkdirAll(opts.Output, 0755); err != nil {
		log.Fatal(err)
	}

	for name, data := range map[string][]byte{
		"index.html":        pages.Home,
		"create-point.html": pages.CreatePoint,
		"logo.svg":          pages.Logo,
	} {
		if err := os.WriteFile(filepath.Join(opts.Output, name), data, 0644); err != nil {
			log.Fatal(err)
		}
	}

	fmt.Println("minify done")
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/woozymasta/ecoleta/internal/ibge"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

type Options struct {
	BaseURL     string   `short:"u" long:"url" description:"IBGE localities API" default:"https://servicodados.ibge.gov.br/api/v1/localidades"`
	Output      string   `short:"o" long:"out" description:"Output file path. Writes to stdout if empty"`
	Format      string   `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" default:"json"`
	States      []string `short:"s" long:"state" description:"Export only these states"`
	Concurrency int      `short:"p" long:"concurrency" description:"Concurrency" default:"4"`
}

// State is one exported state with its cities.
type State struct {
	UF     string   `json:"uf" yaml:"uf"`
	Cities []string `json:"cities" yaml:"cities"`
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client := ibge.NewClient(opts.BaseURL, ibge.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}))

	ufs := opts.States
	if len(ufs) == 0 {
		var err error
		ufs, err = client.States(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching states: %v\n", err)
			os.Exit(1)
		}
	}

	states := make([]State, 0, len(ufs))
	count := 0
	for _, res := range client.WarmCities(ctx, ufs, opts.Concurrency) {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", res.UF, res.Err)
			continue
		}
		states = append(states, State{UF: res.UF, Cities: res.Cities})
		count += len(res.Cities)
	}

	// marshal
	var outputData []byte
	var err error
	if opts.Format == "yaml" {
		outputData, err = yaml.Marshal(states)
	} else {
		outputData, err = json.MarshalIndent(states, "", "  ")
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling data: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		err = os.WriteFile(opts.Output, outputData, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully exported %d states with %d cities to %s (format: %s)\n", len(states), count, opts.Output, opts.Format)
	} else {
		fmt.Println(string(outputData))
	}
}

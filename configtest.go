package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"campwatch/pkg/api"
	"campwatch/pkg/chain"
	"campwatch/pkg/config"
	"campwatch/pkg/models"
)

type testOptions struct {
	JSON     bool
	DryRun   bool
	Contract string // -contract given on the command line
}

// runConfigTest validates the configuration, checks the contract address and
// checks every endpoint. A valid -contract that differs from the file is
// written back unless DryRun is set. It returns the process exit code.
func runConfigTest(ctx context.Context, cfg config.Config, path string, opts testOptions, out io.Writer) (models.TestReport, int) {
	report := models.TestReport{
		ConfigPath:     path,
		ValidStructure: true,
		DryRun:         opts.DryRun,
	}
	say := func(format string, args ...interface{}) {
		if !opts.JSON {
			fmt.Fprintf(out, format, args...)
		}
	}
	finish := func(code int) (models.TestReport, int) {
		if opts.JSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			_ = enc.Encode(report)
		}
		return report, code
	}

	say("Testing configuration at: %s\n", path)

	if problems := cfg.Validate(); len(problems) > 0 {
		report.ValidStructure = false
		report.StructureErrors = problems
		for _, p := range problems {
			say("Error: %s\n", p)
		}
		return finish(1)
	}

	contract := cfg.ContractAddress
	if opts.Contract != "" {
		contract = opts.Contract
	}
	report.ContractAddress = contract
	if contract == "" {
		say("Contract: not configured (the dashboard will prompt for one)\n")
	} else if err := chain.ValidateAddress(contract); err != nil {
		say("Contract: %s ... INVALID (%v)\n", contract, err)
	} else {
		report.ContractValid = true
		say("Contract: %s ... OK\n", contract)
	}

	client := api.NewClient(cfg)
	report.Endpoints = client.CheckEndpoints(ctx)
	failed := 0
	for _, r := range report.Endpoints {
		if r.Status == "ok" {
			say("  %-20s %s ... OK (%d)\n", r.Name, r.URL, r.Code)
			continue
		}
		failed++
		say("  %-20s %s ... Failed: %s\n", r.Name, r.URL, r.Error)
	}
	if failed > 0 {
		say("\nWARNING: %d endpoint(s) unreachable.\n", failed)
	}

	if report.ContractValid && opts.Contract != "" && opts.Contract != cfg.ContractAddress {
		say("\nUpdating configuration with contract address...")
		if opts.DryRun {
			say(" (DRY RUN) Configuration NOT saved.\n")
		} else {
			if err := saveContract(path, opts.Contract); err != nil {
				say(" failed: %v\n", err)
				return finish(1)
			}
			report.ConfigWritten = true
			say(" saved.\n")
		}
	}

	if !report.ContractValid && contract != "" {
		return finish(1)
	}
	return finish(0)
}

// saveContract rewrites the file at path with a new contract address. It
// starts from the file as stored so environment overrides stay out of it.
func saveContract(path, contract string) error {
	stored, err := config.ReadConfigFile(path)
	if err != nil {
		return err
	}
	stored.ContractAddress = contract
	return config.SaveConfig(stored, path)
}

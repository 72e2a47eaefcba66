// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"reprocess-intake/pkg/registry"
)

var registryPath string

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	// Add command flags
	idAdd := addCmd.String("id", "", "Instrument ID (e.g., meddea)")
	displayName := addCmd.String("displayName", "", "Display Name (e.g., MeDDEA)")
	description := addCmd.String("description", "", "Description")
	start := addCmd.String("operationalStart", "", "Operational start date, YYYYMMDD")
	levels := addCmd.String("levels", "l0,l1", "Comma-separated processing levels")
	addCmd.StringVar(&registryPath, "path", "configs/instrument-registry.json", "Path to registry file")

	// Update command flags
	idUpdate := updateCmd.String("id", "", "Instrument ID to update")
	field := updateCmd.String("field", "", "Field to update (displayName, description, operationalStart, levels, active)")
	value := updateCmd.String("value", "", "New value for the field")
	updateCmd.StringVar(&registryPath, "path", "configs/instrument-registry.json", "Path to registry file")

	// Validate command flags
	validateCmd.StringVar(&registryPath, "path", "configs/instrument-registry.json", "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *idAdd == "" || *displayName == "" || *start == "" {
			fmt.Println("Error: id, displayName, and operationalStart are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		instrument := registry.Instrument{
			ID:               strings.ToLower(*idAdd),
			DisplayName:      *displayName,
			Description:      *description,
			OperationalStart: *start,
			Levels:           strings.Split(*levels, ","),
			Active:           true,
		}
		if err := addInstrument(&instrument); err != nil {
			fmt.Printf("Error adding instrument: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added instrument: %s\n", instrument.ID)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateInstrument(*idUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating instrument: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated instrument %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateRegistry(); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Registry validation passed.")

	case "help":
		fallthrough
	default:
		help()
	}
}

func addInstrument(instrument *registry.Instrument) error {
	if _, err := time.Parse("20060102", instrument.OperationalStart); err != nil {
		return fmt.Errorf("invalid operationalStart %q: expected YYYYMMDD", instrument.OperationalStart)
	}

	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		// If file doesn't exist, create new registry
		if os.IsNotExist(err) {
			reg = &registry.InstrumentRegistry{
				Version:     "1.0.0",
				Instruments: []registry.Instrument{},
			}
		} else {
			return fmt.Errorf("failed to load registry: %w", err)
		}
	}

	if _, ok := reg.Lookup(instrument.ID); ok {
		return fmt.Errorf("instrument with ID %s already exists", instrument.ID)
	}

	reg.Instruments = append(reg.Instruments, *instrument)
	return registry.SaveRegistry(registryPath, reg)
}

func updateInstrument(id, field, value string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	found := false
	for i := range reg.Instruments {
		if !strings.EqualFold(reg.Instruments[i].ID, id) {
			continue
		}
		found = true
		switch field {
		case "displayName":
			reg.Instruments[i].DisplayName = value
		case "description":
			reg.Instruments[i].Description = value
		case "operationalStart":
			if _, err := time.Parse("20060102", value); err != nil {
				return fmt.Errorf("invalid operationalStart %q: expected YYYYMMDD", value)
			}
			reg.Instruments[i].OperationalStart = value
		case "levels":
			reg.Instruments[i].Levels = strings.Split(value, ",")
		case "active":
			active, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid active value: %w", err)
			}
			reg.Instruments[i].Active = active
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		break
	}

	if !found {
		return fmt.Errorf("instrument with ID %s not found", id)
	}

	return registry.SaveRegistry(registryPath, reg)
}

func validateRegistry() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	if len(reg.Instruments) == 0 {
		return fmt.Errorf("registry contains no instruments")
	}

	ids := make(map[string]bool)
	for _, instrument := range reg.Instruments {
		if instrument.ID == "" {
			return fmt.Errorf("instrument missing required field: ID")
		}
		key := strings.ToLower(instrument.ID)
		if ids[key] {
			return fmt.Errorf("duplicate instrument ID: %s", instrument.ID)
		}
		ids[key] = true

		if instrument.DisplayName == "" {
			return fmt.Errorf("instrument %s missing required field: displayName", instrument.ID)
		}
		if _, err := instrument.OperationalStartDate(); err != nil {
			return err
		}
		if len(instrument.Levels) == 0 {
			return fmt.Errorf("instrument %s has no processing levels", instrument.ID)
		}
	}

	return nil
}

func help() {
	fmt.Println(`Instrument Registry Updater

Usage:
  registry-updater add -id <id> -displayName <name> -operationalStart <YYYYMMDD> [-description <text>] [-levels l0,l1] [-path <file>]
  registry-updater update -id <id> -field <field> -value <value> [-path <file>]
  registry-updater validate [-path <file>]

Commands:
  add       Add a new instrument to the registry
  update    Update a field of an existing instrument
  validate  Check the registry for structural problems`)
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ticket-seating/internal/services"
	"ticket-seating/internal/status"
	"ticket-seating/models"

	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// newImportLayoutCmd builds the "import-layout" command. It loads a seating
// map from a YAML or JSONC file and stores it on an event after the same
// validation the admin endpoint runs.
func newImportLayoutCmd(events *services.EventService) *cobra.Command {
	var eventID string

	command := &cobra.Command{
		Use:   "import-layout <file>",
		Short: "Import a seating map from a .yaml or .jsonc file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !models.IsValidEventID(eventID) {
				return fmt.Errorf("invalid event id %q", eventID)
			}

			m, err := readLayoutFile(args[0])
			if err != nil {
				return err
			}
			if err := events.UpdateSeatingMap(cmd.Context(), eventID, m); err != nil {
				return err
			}

			cmd.Printf("%s: imported %d sections, %d seats\n", eventID, len(m.Sections), len(m.Index()))
			return nil
		},
	}
	command.Flags().StringVar(&eventID, "event", "", "id of the event to update")
	command.MarkFlagRequired("event")

	return command
}

func readLayoutFile(path string) (*models.SeatingMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m, err := parseLayout(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// parseLayout decodes a seating map. YAML goes through JSON so the json tags
// of the models stay the only field mapping.
func parseLayout(ext string, data []byte) (*models.SeatingMap, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		data = raw
	case "json", "jsonc":
		data = jsonc.ToJSON(data)
	default:
		return nil, fmt.Errorf("%w: %q", status.ErrUnsupportedInput, ext)
	}

	var m models.SeatingMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

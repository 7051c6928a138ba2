package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moorebrett0/hatchling/internal/serial"
)

// listPorts is swapped in tests.
var listPorts = serial.Ports

func newPortsCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial devices and mark the configured one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			ports, err := listPorts()
			if err != nil {
				return fmt.Errorf("list ports: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(ports) == 0 {
				fmt.Fprintln(out, "no serial devices found")
				return nil
			}
			for _, p := range ports {
				mark := " "
				if p == cfg.Device.Address {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %s\n", mark, p)
			}
			return nil
		},
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gatekit/internal/bootstrap"
	"gatekit/internal/platform/configuration"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gatekit",
		Short:         "AA plugin toolkit: simulate, diagnose and validate plugins",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSimulateCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newConfigCmd())
	return root
}

func newSimulateCmd() *cobra.Command {
	var scenarioPath, pluginPath, auditDBPath string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive scripted sessions through a plugin binary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap.NewApp(auditDBPath)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.SimulatorCLI.Run(cmd.Context(), scenarioPath, pluginPath)
			if err != nil {
				return err
			}
			for _, session := range result.Sessions {
				line := fmt.Sprintf("%s: authenticate=%s", session.SessionID, session.AuthenticateVerdict)
				if session.AuthorizeVerdict != "" {
					line += fmt.Sprintf(" authorize=%s", session.AuthorizeVerdict)
				}
				if session.RoundTrips > 1 {
					line += fmt.Sprintf(" (%d round-trips)", session.RoundTrips)
				}
				cmd.Println(line)
			}
			cmd.Printf("%d session(s) passed\n", len(result.Sessions))
			return nil
		},
	}
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "scenario YAML file")
	cmd.Flags().StringVar(&pluginPath, "plugin", "", "plugin binary, overriding the scenario's plugin entry")
	cmd.Flags().StringVar(&auditDBPath, "audit-db", "", "sqlite file recording one row per hook invocation")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func newDoctorCmd() *cobra.Command {
	var pluginPath, configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that a plugin binary starts and accepts configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configText := ""
			if configPath != "" {
				raw, err := os.ReadFile(configPath)
				if err != nil {
					return err
				}
				configText = string(raw)
			}

			app, err := bootstrap.NewApp("")
			if err != nil {
				return err
			}
			defer app.Close()

			result := app.SimulatorCLI.Doctor(cmd.Context(), pluginPath, configText)
			if !result.Reachable {
				return fmt.Errorf("plugin %s unreachable: %s", result.Plugin, result.Error)
			}
			cmd.Printf("plugin %s is healthy\n", result.Plugin)
			return nil
		},
	}
	cmd.Flags().StringVar(&pluginPath, "plugin", "", "plugin binary to check")
	cmd.Flags().StringVar(&configPath, "config", "", "INI configuration file to push")
	_ = cmd.MarkFlagRequired("plugin")
	return cmd
}

func newConfigCmd() *cobra.Command {
	config := &cobra.Command{Use: "config", Short: "Configuration helpers"}

	validate := &cobra.Command{
		Use:   "validate <file>",
		Short: "Parse an INI configuration file and report errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cfg, err := configuration.New(string(raw))
			if err != nil {
				return err
			}
			for _, section := range []string{"logging", "auth", "authentication_cache"} {
				if cfg.HasSection(section) {
					cmd.Printf("[%s] present\n", section)
				}
			}
			cmd.Println("configuration is valid")
			return nil
		},
	}
	config.AddCommand(validate)
	return config
}

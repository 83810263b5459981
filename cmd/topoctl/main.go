package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meshadmin/topomapper"
	"github.com/meshadmin/topomapper/server/extract"
	"github.com/meshadmin/topomapper/server/ops"
	"github.com/meshadmin/topomapper/server/ops/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "topoctl",
		Short:        "Extract network topologies from device configuration files",
		SilenceUsage: true,
	}
	root.AddCommand(newExtractCmd())
	root.AddCommand(newUploadCmd())
	root.AddCommand(newLatestCmd())
	return root
}

func newExtractCmd() *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "extract <config-file>",
		Short: "Extract a topology locally and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			name := filepath.Base(args[0])
			ext, err := extract.Extract(name, content)
			if err != nil {
				return err
			}
			if summary {
				printSummary(cmd, ext)
				return nil
			}
			topo := ops.BuildTopology(ext, config.GetConfig().Styles)
			return printJSON(cmd, topo)
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "print per-interface classifications instead of the topology")
	return cmd
}

func printSummary(cmd *cobra.Command, ext extract.Extraction) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s, %d interfaces)\n", ext.Hostname, ext.Format, len(ext.Interfaces))
	w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCATEGORY\tTYPE\tADDRESS\tVLAN")
	for _, iface := range ext.Interfaces {
		cls := extract.Classify(iface.Name, iface.Type, iface.Role)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			iface.Name, cls.Category, iface.Type, iface.Address, iface.VLAN)
	}
	_ = w.Flush()
}

func newUploadCmd() *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "upload <config-file>",
		Short: "Upload a configuration file to a topomapper server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			c := topomapper.NewClient(topomapper.WithBaseURL(server))
			topo, err := c.Upload(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			return printJSON(cmd, topo)
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:80", "topomapper server base URL")
	return cmd
}

func newLatestCmd() *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Fetch the most recent topology from a topomapper server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := topomapper.NewClient(topomapper.WithBaseURL(server))
			rec, err := c.Latest(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:80", "topomapper server base URL")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

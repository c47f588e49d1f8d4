package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var neighborDepth int

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect the knowledge graph",
}

var graphStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge graph statistics",
	RunE:  runGraphStats,
}

var graphNeighborsCmd = &cobra.Command{
	Use:   "neighbors [entity]",
	Short: "List entities related to the given entity",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGraphNeighbors,
}

var graphPathCmd = &cobra.Command{
	Use:   "path [from] [to]",
	Short: "Find the shortest relation path between two entities",
	Args:  cobra.ExactArgs(2),
	RunE:  runGraphPath,
}

var graphExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the graph snapshot as JSON",
	RunE:  runGraphExport,
}

func init() {
	graphNeighborsCmd.Flags().IntVar(&neighborDepth, "depth", 1, "neighborhood depth in hops")
	graphCmd.AddCommand(graphStatsCmd, graphNeighborsCmd, graphPathCmd, graphExportCmd)
	rootCmd.AddCommand(graphCmd)
}

func runGraphStats(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	stats := a.Graph.Statistics()
	cmd.Printf("Nodes:      %d\n", stats.Nodes)
	cmd.Printf("Edges:      %d\n", stats.Edges)
	cmd.Printf("Density:    %.4f\n", stats.Density)
	cmd.Printf("Components: %d\n", stats.ConnectedComponents)
	return nil
}

func runGraphNeighbors(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	entity := strings.Join(args, " ")
	neighbors, err := a.Graph.Neighbors(entity, neighborDepth)
	if err != nil {
		return err
	}
	if len(neighbors) == 0 {
		cmd.Printf("No entities related to %q within %d hops.\n", entity, neighborDepth)
		return nil
	}
	for _, n := range neighbors {
		cmd.Printf("%s (%s)\n", n.Name, n.Type)
	}
	return nil
}

func runGraphPath(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	path, err := a.Graph.ShortestPath(args[0], args[1])
	if err != nil {
		return err
	}
	if len(path) == 0 {
		cmd.Printf("No path between %q and %q.\n", args[0], args[1])
		return nil
	}
	cmd.Println(strings.Join(path, " -> "))
	return nil
}

func runGraphExport(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	data, err := json.MarshalIndent(a.Graph.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

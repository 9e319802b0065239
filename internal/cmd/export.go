package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/MeKo-Tech/geoexplorer/internal/geojson"
	"github.com/MeKo-Tech/geoexplorer/internal/render"
	"github.com/MeKo-Tech/geoexplorer/internal/selection"
	"github.com/MeKo-Tech/geoexplorer/internal/types"
	"github.com/MeKo-Tech/geoexplorer/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var exportCmd = &cobra.Command{
	Use:   "export <state-rel>",
	Short: "Export the settlements of every district of a state as GeoJSON",
	Long: `Export lists the districts of a state and fetches the settlements of each
district in parallel. Places reported by two neighbouring districts are kept
once. The result is written as a GeoJSON FeatureCollection.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("level", string(selection.LevelCity), "Settlement level: city or village")
	exportCmd.Flags().IntP("workers", "w", 2, "Number of districts fetched in parallel")
	exportCmd.Flags().Bool("progress", true, "Log a line per swept district")
	exportCmd.Flags().Bool("allow-failures", false, "Write the export even if some districts fail")
	exportCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"export.level", "level"},
		{"export.workers", "workers"},
		{"export.progress", "progress"},
		{"export.allow_failures", "allow-failures"},
		{"export.output", "output"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, exportCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	stateRel, err := parseRelID(args[0])
	if err != nil {
		return err
	}
	info, err := selection.LookupLevel(selection.Level(viper.GetString("export.level")))
	if err != nil {
		return err
	}
	if !info.IsPointLevel() {
		return fmt.Errorf("level %q has no settlements; use city or village", info.Key)
	}

	ctx, cancel := queryContext(cmd)
	defer cancel()

	client := newOverpassClient()
	districts, err := client.ListSubAreas(ctx, stateRel)
	if err != nil {
		return fmt.Errorf("listing districts: %w", err)
	}
	if len(districts) == 0 {
		return fmt.Errorf("state %d has no districts", stateRel)
	}

	tasks := make([]worker.Task, len(districts))
	for i, d := range districts {
		tasks[i] = worker.Task{Area: d, Kinds: info.Kinds}
	}

	progress := worker.NewProgress(logger, len(tasks), viper.GetBool("export.progress"))
	pool := worker.New(worker.Config{
		Workers:    viper.GetInt("export.workers"),
		Fetcher:    client,
		OnProgress: progress.Callback(),
	})

	logger.Info("exporting settlements",
		"state_rel", stateRel,
		"districts", len(districts),
		"level", info.Key,
	)
	results := pool.Run(ctx, tasks)
	summary := progress.Done()

	if n := len(summary.Failed); n > 0 && !viper.GetBool("export.allow_failures") {
		names := make([]string, n)
		for i, f := range summary.Failed {
			names[i] = fmt.Sprintf("%s (%d)", f.Name, f.ID)
		}
		return fmt.Errorf("%d of %d districts failed: %s (use --allow-failures to write a partial export)",
			n, len(results), strings.Join(names, ", "))
	}

	fc := geojson.FromSettlements(worker.Merge(results), exportStyle)
	data, err := geojson.Marshal(fc)
	if err != nil {
		return err
	}

	out := viper.GetString("export.output")
	if out == "" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	logger.Info("export written", "path", out, "features", len(fc.Features))
	return nil
}

func exportStyle(k types.SettlementKind) geojson.Style {
	if k == types.KindVillage {
		return geojson.Style{Color: render.ColorVillage, Radius: 3}
	}
	return geojson.Style{Color: render.ColorCity, Radius: 4}
}

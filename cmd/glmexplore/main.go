// Command glmexplore fits a generalized linear model to a tabular data
// file and lets the user explore the fit interactively.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kshedden/glmexplore/config"
	"github.com/kshedden/glmexplore/explore"
	"github.com/kshedden/glmexplore/internal/tui"
	"github.com/kshedden/glmexplore/logging"
	"github.com/kshedden/glmexplore/table"
	"github.com/kshedden/glmexplore/view"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"
)

type options struct {
	data      string
	sheet     string
	response  string
	formula   string
	family    string
	maxLevels int
	binMethod string
	config    string
	plot      string
	out       string
	summary   bool
}

func main() {

	var opt options

	rootCmd := &cobra.Command{
		Use:   "glmexplore --data FILE --response COLUMN",
		Short: "Explore generalized linear model fits",
		Long: "glmexplore fits a GLM to a CSV or Excel file and shows predicted against\n" +
			"actual means of the response grouped by each regressor.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &opt)
		},
	}

	f := rootCmd.Flags()
	f.StringVar(&opt.data, "data", "", "CSV or Excel file holding the response and regressors")
	f.StringVar(&opt.sheet, "sheet", "", "Excel sheet to read (default: the first sheet)")
	f.StringVar(&opt.response, "response", "", "Name of the response column")
	f.StringVar(&opt.formula, "formula", "", "Model formula (default: intercept only)")
	f.StringVar(&opt.family, "family", "gaussian", "Model family: gaussian, binomial or gamma")
	f.IntVar(&opt.maxLevels, "max-levels", explore.DefaultMaxLevels, "Numeric regressors with more distinct values are binned")
	f.StringVar(&opt.binMethod, "bin-method", "uniform", "Binning method: uniform or quantile")
	f.StringVar(&opt.config, "config", "", "YAML configuration file")
	f.StringVar(&opt.plot, "plot", "", "Write a chart for VAR or VAR,SECONDARY and exit")
	f.StringVar(&opt.out, "out", "", "Output file for --plot (format from the extension)")
	f.BoolVar(&opt.summary, "summary", false, "Print the fit summary and exit")
	_ = rootCmd.MarkFlagRequired("data")
	_ = rootCmd.MarkFlagRequired("response")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies the flags the user set.
func loadConfig(cmd *cobra.Command, opt *options) (*config.Config, error) {

	cfg, err := config.Load(opt.config)
	if err != nil {
		return nil, err
	}

	fl := cmd.Flags()
	if fl.Changed("formula") {
		cfg.Model.Formula = opt.formula
	}
	if fl.Changed("family") {
		cfg.Model.Family = opt.family
	}
	if fl.Changed("max-levels") {
		cfg.View.MaxLevels = opt.maxLevels
	}
	if fl.Changed("bin-method") {
		cfg.View.BinMethod = opt.binMethod
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setupLogging(lc config.LoggingConfig) (io.Closer, error) {

	var w io.Writer = io.Discard
	var closer io.Closer
	if lc.File != "" {
		fid, err := os.OpenFile(lc.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w, closer = fid, fid
	}

	lg, err := logging.New(w, lc.Level, lc.Format)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}
	logging.SetLogger(lg)

	return closer, nil
}

func run(cmd *cobra.Command, opt *options) error {

	cfg, err := loadConfig(cmd, opt)
	if err != nil {
		return err
	}

	closer, err := setupLogging(cfg.Logging)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	settings, err := cfg.ViewSettings()
	if err != nil {
		return err
	}
	family, err := cfg.Family()
	if err != nil {
		return err
	}

	tab, err := table.Load(opt.data, opt.sheet)
	if err != nil {
		return err
	}
	regressors, response, err := tab.Split(opt.response)
	if err != nil {
		return err
	}
	logging.Logger().Info("data loaded", slog.String("path", opt.data),
		slog.Int("rows", tab.NumRows()), slog.Int("columns", tab.NumCols()))

	sess, err := explore.Fit(regressors, response, cfg.Model.Formula, family)
	if err != nil {
		return err
	}

	state, err := explore.NewState(sess, settings)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case opt.summary:
		fmt.Fprintln(out, sess.SummaryText())
		return nil
	case opt.plot != "":
		return writePlot(out, state, cfg.Export, opt)
	}

	p := tea.NewProgram(tui.NewModel(explore.NewStore(state), cfg.Export), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	return err
}

func writePlot(out io.Writer, state explore.State, ec config.ExportConfig, opt *options) error {

	var act explore.Action = explore.SelectVariable{Name: opt.plot}
	if primary, secondary, ok := strings.Cut(opt.plot, ","); ok {
		act = explore.SelectPair{Primary: strings.TrimSpace(primary), Secondary: strings.TrimSpace(secondary)}
	}
	state, err := explore.Reduce(state, act)
	if err != nil {
		return err
	}

	chart, err := view.ForSelection(state)
	if err != nil {
		return err
	}

	if opt.out == "" {
		fmt.Fprintln(out, view.Text(chart))
		return nil
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(opt.out)), ".")
	fid, err := os.Create(opt.out)
	if err != nil {
		return err
	}

	err = view.Render(chart, fid, format, vg.Length(ec.Width)*vg.Inch, vg.Length(ec.Height)*vg.Inch)
	if cerr := fid.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	logging.Logger().Info("chart written", slog.String("path", opt.out))

	return nil
}

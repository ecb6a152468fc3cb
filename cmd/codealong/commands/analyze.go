package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codealong/pkg/analysis"
	"github.com/Sumatoshi-tech/codealong/pkg/config"
	"github.com/Sumatoshi-tech/codealong/pkg/event"
	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
	"github.com/Sumatoshi-tech/codealong/pkg/report"
	"github.com/Sumatoshi-tech/codealong/pkg/revwalk"
	"github.com/Sumatoshi-tech/codealong/pkg/store"
)

const (
	formatTable = "table"
	fileMode    = 0o644
	topAuthors  = 20
)

// AnalyzeCommand holds the flags of `codealong analyze`.
type AnalyzeCommand struct {
	repoConfig           string
	since                string
	workers              int
	blameBackend         string
	format               string
	output               string
	storePath            string
	chart                string
	commit               string
	ignoreUnknownAuthors bool
	failFast             bool
	host                 string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	ac := &AnalyzeCommand{}

	cmd := &cobra.Command{
		Use:   "analyze [repo-path...]",
		Short: "Analyze repositories and emit one event per commit",
		Long: `Analyze walks the configured refs of each repository, classifies every
changed line of every commit and writes one event per commit.

Repositories default to the current directory. Settings come from
codealong.yaml and CODEALONG_* variables; flags override both.`,
		RunE: ac.run,
	}

	cmd.Flags().StringVar(&ac.repoConfig, "repo-config", "", "Analysis config file (default: .codealong.yml in each repository)")
	cmd.Flags().StringVar(&ac.since, "since", "", "Skip commits authored before this time (e.g. '2024-01-01', RFC3339, '720h')")
	cmd.Flags().IntVar(&ac.workers, "workers", 0, "Number of parallel workers (0 = use CPU count)")
	cmd.Flags().StringVar(&ac.blameBackend, "blame", "", "Blame backend: process, native")
	cmd.Flags().StringVar(&ac.format, "format", "", "Output format: json, bulk, table")
	cmd.Flags().StringVarP(&ac.output, "output", "o", "", "Write events to this file instead of stdout")
	cmd.Flags().StringVar(&ac.storePath, "store", "", "Result database; commits already stored are skipped")
	cmd.Flags().StringVar(&ac.chart, "chart", "", "Write an HTML chart of work per tag to this file")
	cmd.Flags().StringVar(&ac.commit, "commit", "", "Analyze only this revision")
	cmd.Flags().BoolVar(&ac.ignoreUnknownAuthors, "ignore-unknown-authors", false, "Skip commits by authors missing from the contributors list")
	cmd.Flags().BoolVar(&ac.failFast, "fail-fast", false, "Stop at the first commit that fails to analyze")
	cmd.Flags().StringVar(&ac.host, "host", event.Hostname(), "Host recorded on every event")

	return cmd
}

// applyFlags overrides settings with the flags the user set.
func (ac *AnalyzeCommand) applyFlags(cmd *cobra.Command, s *config.Settings) {
	flags := cmd.Flags()

	if flags.Changed("since") {
		s.Analysis.Since = ac.since
	}

	if flags.Changed("workers") {
		s.Analysis.Workers = ac.workers
	}

	if flags.Changed("blame") {
		s.Analysis.BlameBackend = ac.blameBackend
	}

	if flags.Changed("ignore-unknown-authors") {
		s.Analysis.IgnoreUnknownAuthors = ac.ignoreUnknownAuthors
	}

	if flags.Changed("fail-fast") {
		s.Analysis.FailFast = ac.failFast
	}

	if flags.Changed("format") {
		s.Output.Format = ac.format
	}

	if flags.Changed("output") {
		s.Output.Path = ac.output
	}

	if flags.Changed("store") {
		s.Output.Store = ac.storePath
	}

	if flags.Changed("chart") {
		s.Output.Chart = ac.chart
	}
}

func (ac *AnalyzeCommand) run(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	ac.applyFlags(cmd, settings)

	if noColor, _ := cmd.Flags().GetBool(flagNoColor); noColor {
		color.NoColor = true
	}

	since, err := config.ParseSince(settings.Analysis.Since, time.Now())
	if err != nil {
		return err
	}

	tel, err := startTelemetry(settings, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer func() {
		closeErr := tel.close(context.Background())
		if closeErr != nil {
			tel.logger().Warn("telemetry shutdown", slog.Any("error", closeErr))
		}
	}()

	out, closeOut, err := openOutput(settings.Output.Path, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut()

	run := &analyzeRun{
		settings: settings,
		since:    since,
		tel:      tel,
		summary:  &report.Summary{},
		host:     ac.host,
		commit:   ac.commit,
		config:   ac.repoConfig,
	}

	if settings.Output.Format != formatTable {
		run.writer, err = event.NewWriter(settings.Output.Format, out)
		if err != nil {
			return err
		}
	}

	if settings.Output.Store != "" {
		run.store, err = store.Open(settings.Output.Store)
		if err != nil {
			return err
		}

		defer run.store.Close()
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}

	for _, path := range paths {
		err = run.repository(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("analyze %s: %w", path, err)
		}
	}

	return run.finish(cmd.ErrOrStderr(), out)
}

func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return nil, nil, fmt.Errorf("open output: %w", err)
	}

	return f, func() { _ = f.Close() }, nil
}

// analyzeRun is the state shared by every repository of one invocation.
type analyzeRun struct {
	settings *config.Settings
	since    time.Time
	tel      *telemetry
	writer   event.Writer
	store    *store.Store
	summary  *report.Summary
	host     string
	commit   string
	config   string
	skipped  int
}

func (r *analyzeRun) repository(ctx context.Context, path string) error {
	repo, err := gitlib.OpenRepository(path)
	if err != nil {
		return err
	}
	defer repo.Free()

	rc, err := r.repoConfig(repo)
	if err != nil {
		return err
	}

	wc, err := config.NewWorkingConfig(rc.Config)
	if err != nil {
		return err
	}

	logger := r.tel.logger().With(slog.String("repo.name", rc.Repo.Name))

	hashes, err := r.selectCommits(ctx, repo, wc, rc.Repo, logger)
	if err != nil {
		return err
	}

	hashes, err = r.dropStored(rc.Repo.Name, hashes)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "analyzing repository", slog.Int("commits", len(hashes)), slog.Int("skipped", r.skipped))

	pool := &revwalk.Pool{
		Workers:  r.settings.Analysis.Workers,
		Backend:  r.settings.Analysis.BlameBackend,
		FailFast: r.settings.Analysis.FailFast,
		Metrics:  r.tel.metrics,
		Logger:   logger,
	}

	_, err = pool.Run(ctx, repo.Path(), wc, rc.Repo, hashes, r.emit)

	return err
}

func (r *analyzeRun) repoConfig(repo *gitlib.Repository) (config.RepoConfig, error) {
	if r.config == "" {
		return config.FromRepository(repo)
	}

	cfg, err := config.FromPath(r.config)
	if err != nil {
		return config.RepoConfig{}, err
	}

	return config.WithConfig(cfg, repo), nil
}

func (r *analyzeRun) selectCommits(
	ctx context.Context, repo *gitlib.Repository, wc *config.WorkingConfig, info config.RepoInfo, logger *slog.Logger,
) ([]gitlib.Hash, error) {
	if r.commit != "" {
		h, err := repo.ResolveRevision(r.commit)
		if err != nil {
			return nil, err
		}

		return []gitlib.Hash{h}, nil
	}

	opts := revwalk.Options{Since: r.since, IgnoreUnknownAuthors: r.settings.Analysis.IgnoreUnknownAuthors}

	return revwalk.NewRepoAnalyzer(repo, wc, info, opts, logger).Hashes(ctx)
}

func (r *analyzeRun) dropStored(repoName string, hashes []gitlib.Hash) ([]gitlib.Hash, error) {
	if r.store == nil {
		return hashes, nil
	}

	kept := hashes[:0]

	for _, h := range hashes {
		ok, err := r.store.Has(repoName, h.String())
		if err != nil {
			return nil, err
		}

		if ok {
			r.skipped++

			continue
		}

		kept = append(kept, h)
	}

	return kept, nil
}

// emit is the pool sink; calls are serialized.
func (r *analyzeRun) emit(_ context.Context, c *analysis.AnalyzedCommit) error {
	r.summary.Add(c)

	if r.store != nil {
		err := r.store.Put(c)
		if err != nil {
			return err
		}
	}

	if r.writer != nil {
		return r.writer.Write(event.New(c, r.host))
	}

	return nil
}

func (r *analyzeRun) finish(status, out io.Writer) error {
	if r.settings.Output.Format == formatTable {
		err := report.RenderTable(out, r.summary, report.TableOptions{MaxAuthors: topAuthors})
		if err != nil {
			return err
		}
	}

	if r.settings.Output.Chart != "" {
		err := writeChart(r.settings.Output.Chart, r.summary)
		if err != nil {
			return err
		}
	}

	ok := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(status, "%s %s commits analyzed, %s already stored\n",
		ok("done:"), humanize.Comma(int64(r.summary.Commits)), humanize.Comma(int64(r.skipped)))

	if r.store != nil {
		size, err := r.store.Size()
		if err == nil {
			fmt.Fprintf(status, "store %s: %s\n", r.store.Path(), humanize.IBytes(uint64(max(size, 0))))
		}
	}

	return nil
}

func writeChart(path string, s *report.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}

	renderErr := report.RenderImpactChart(f, s)

	return errors.Join(renderErr, f.Close())
}

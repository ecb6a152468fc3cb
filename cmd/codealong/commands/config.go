package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/codealong/pkg/analysis"
	"github.com/Sumatoshi-tech/codealong/pkg/config"
	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
	"github.com/Sumatoshi-tech/codealong/pkg/identity"
)

// ConfigCommand holds the flags of `codealong config`.
type ConfigCommand struct {
	repoConfig string
	file       string
	author     string
}

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	cc := &ConfigCommand{}

	cmd := &cobra.Command{
		Use:   "config [repo-path]",
		Short: "Show the resolved analysis configuration",
		Long: `Config loads a repository's analysis configuration, merges the built-in
defaults and prints the result. With --file it prints the tags, weight and
ignore flag in force for that path; with --author it shows which contributor
an identity resolves to.`,
		Args: cobra.MaximumNArgs(1),
		RunE: cc.run,
	}

	cmd.Flags().StringVar(&cc.repoConfig, "repo-config", "", "Analysis config file (default: .codealong.yml in the repository)")
	cmd.Flags().StringVar(&cc.file, "file", "", "Show the configuration in force for this path")
	cmd.Flags().StringVar(&cc.author, "author", "", `Resolve an identity such as "Name <email>"`)

	return cmd
}

func (cc *ConfigCommand) run(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	repo, err := gitlib.OpenRepository(path)
	if err != nil {
		return err
	}
	defer repo.Free()

	rc, err := (&analyzeRun{config: cc.repoConfig}).repoConfig(repo)
	if err != nil {
		return err
	}

	wc, err := config.NewWorkingConfig(rc.Config)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	switch {
	case cc.file != "":
		return cc.printFile(out, wc)
	case cc.author != "":
		return cc.printAuthor(out, wc)
	default:
		return printResolved(out, rc.Repo, wc)
	}
}

func (cc *ConfigCommand) printFile(out io.Writer, wc *config.WorkingConfig) error {
	fc, found := wc.ConfigForFile(cc.file)
	ctx := analysis.NewConfigContext(fc, found, nil)

	label := color.New(color.Bold).SprintFunc()

	if !found {
		fmt.Fprintf(out, "%s no glob matches, defaults apply\n", label(cc.file+":"))
	} else {
		fmt.Fprintf(out, "%s\n", label(cc.file+":"))
	}

	fmt.Fprintf(out, "  tags:   %v\n  weight: %g\n  ignore: %t\n", ctx.Tags, ctx.Weight, ctx.Ignore)

	return nil
}

func (cc *ConfigCommand) printAuthor(out io.Writer, wc *config.WorkingConfig) error {
	id, err := identity.ParseStrict(cc.author)
	if err != nil {
		return err
	}

	cfg, known := wc.ConfigForIdentity(id)
	if !known {
		fmt.Fprintf(out, "%s is not a configured contributor\n", id)

		return nil
	}

	return yaml.NewEncoder(out).Encode(cfg)
}

type resolvedConfig struct {
	Repo   config.RepoInfo `yaml:"repo"`
	Config config.Config   `yaml:"config"`
}

func printResolved(out io.Writer, info config.RepoInfo, wc *config.WorkingConfig) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)

	err := enc.Encode(resolvedConfig{Repo: info, Config: wc.Config()})
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return enc.Close()
}

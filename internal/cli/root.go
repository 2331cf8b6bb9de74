// Package cli implements the fact-importer command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/config"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/logging"
)

// NewRootCommand builds the command tree. Output goes to out; logs go to
// errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	v := viper.New()
	var cfgFile string
	st := &state{v: v, out: out}

	root := &cobra.Command{
		Use:   "fact-importer",
		Short: "Match loosely structured facts against a canonical entity catalog",
		Long: `fact-importer resolves facts (source name, relation role, target name)
against a catalog of entities and relation types, reporting per-name and
per-role lookup statistics. It runs one-off batches from the command line or
serves the catalog and import tools over MCP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := readConfig(v, cfgFile); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			st.cfg = cfg
			st.log = logging.New(cfg.Log.Level, cfg.Log.Format, errOut)
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./fact-importer.yaml or $HOME/.fact-importer.yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.String("storage-driver", "sqlite", "resolver backend (sqlite, neo4j)")
	pf.String("db", "./data/catalog.db", "SQLite catalog database path")
	pf.String("rules", "", "YAML preprocessing rules file")
	pf.String("source-name", "source", "fact property holding the source entity name")
	pf.String("role-name", "role", "fact property holding the relation role")
	pf.String("target-name", "target", "fact property holding the target entity name")

	bindFlags(v, pf, map[string]string{
		"log.level":            "log-level",
		"log.format":           "log-format",
		"storage.driver":       "storage-driver",
		"storage.path":         "db",
		"importer.rules_file":  "rules",
		"importer.source_name": "source-name",
		"importer.role_name":   "role-name",
		"importer.target_name": "target-name",
	})

	root.AddCommand(newServeCommand(st), newMatchCommand(st), newSeedCommand(st))
	return root
}

// Execute runs the command line against os.Args.
func Execute() error {
	return NewRootCommand(os.Stdout, os.Stderr).Execute()
}

// state is shared by subcommands once the config is loaded.
type state struct {
	v   *viper.Viper
	cfg *config.Config
	log *slog.Logger
	out io.Writer
}

// readConfig reads the config file and FACT_IMPORTER_* environment variables.
func readConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix("FACT_IMPORTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return nil
	}

	v.SetConfigName("fact-importer")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// bindFlags binds config keys to flags in fs. A key naming a flag that does
// not exist is a programming error and panics.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind %s to --%s: %v", key, name, err))
		}
	}
}

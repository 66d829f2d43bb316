package cmd

import (
	stderrors "errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lakecat/internal/config"
	"lakecat/internal/gateway"
	"lakecat/internal/lake"
	"lakecat/internal/probe"
	"lakecat/internal/security"
	"lakecat/internal/ui"
	"lakecat/pkg/models"
)

var (
	flagGatewayMode string
	flagContainer   string
	flagCatalog     string
	flagDSN         string
	flagDuckDBBin   string
	flagLakeRoot    string
	flagEngineRoot  string

	flagIncludeActive bool
	flagOnlyRun       string

	rootCmd = &cobra.Command{
		Use:   "lakecat",
		Short: "Versioned run catalog for the Discogs data lake",
		Long: "Lakecat reconciles immutable data-lake runs into per-run catalog schemas,\n" +
			"keeps an append-only run registry and KPI event history, and exports the\n" +
			"latest state as CSV reports.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.ColorError("error: "+err.Error()))
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if stderrors.Is(err, probe.ErrNoDumpFound) {
		return 2
	}
	return 1
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagGatewayMode, "gateway", "", "query gateway mode: exec, sql, or duckdb")
	pf.StringVar(&flagContainer, "container", "", "engine container name for exec mode")
	pf.StringVar(&flagCatalog, "catalog", "", "engine catalog name")
	pf.StringVar(&flagDSN, "dsn", "", "engine DSN for sql mode")
	pf.StringVar(&flagDuckDBBin, "duckdb-bin", "", "duckdb binary for duckdb mode and sanity checks")
	pf.StringVar(&flagLakeRoot, "lake", "", "lake root on the host (overrides DISCOGS_DATA_LAKE)")
	pf.StringVar(&flagEngineRoot, "engine-root", "", "lake root as the engine sees it")
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(config.GetConfigPath())

	viper.SetEnvPrefix("LAKECAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// no config file is fine; defaults cover a local setup
	}
}

// runEnv bundles everything a sweep command needs.
type runEnv struct {
	cfg   *models.Config
	paths lake.Paths
	gw    gateway.Gateway
	out   *ui.Sweep
}

func buildEnv() (*runEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	root := firstNonEmpty(flagLakeRoot, viper.GetString("lake.root"), cfg.Lake.Root)
	if root == "" {
		root, err = lake.RootFromEnv()
		if err != nil {
			return nil, err
		}
	} else if err := lake.ValidateRoot(root); err != nil {
		return nil, err
	}

	engineRoot := firstNonEmpty(flagEngineRoot, cfg.Lake.EngineRoot)
	paths := lake.NewPaths(root, engineRoot)

	gw, err := buildGateway(cfg)
	if err != nil {
		return nil, err
	}

	return &runEnv{cfg: cfg, paths: paths, gw: gw, out: ui.NewSweep()}, nil
}

func buildGateway(cfg *models.Config) (gateway.Gateway, error) {
	mode := firstNonEmpty(flagGatewayMode, viper.GetString("gateway.mode"), cfg.Gateway.Mode)
	catalog := firstNonEmpty(flagCatalog, cfg.Gateway.Catalog)

	switch mode {
	case "exec":
		container := firstNonEmpty(flagContainer, viper.GetString("gateway.container"), cfg.Gateway.Container)
		return gateway.NewExecGateway(container, catalog), nil

	case "sql":
		dsn := firstNonEmpty(flagDSN, viper.GetString("gateway.dsn"), cfg.Gateway.DSN)
		if dsn == "" {
			return nil, fmt.Errorf("sql gateway needs a DSN (--dsn or gateway.dsn in config)")
		}
		dsn, err := resolveDSN(dsn, cfg.Gateway.User, cfg.Gateway.Password)
		if err != nil {
			return nil, err
		}
		timeout, err := parseTimeout(cfg.Gateway.Timeout)
		if err != nil {
			return nil, err
		}
		g := gateway.NewSQLGateway(gateway.SQLConfig{DSN: dsn, Timeout: timeout})
		if err := g.Connect(); err != nil {
			return nil, err
		}
		return g, nil

	case "duckdb":
		return gateway.NewDuckDBGateway(duckDBBin(cfg)), nil

	default:
		return nil, fmt.Errorf("unknown gateway mode %q (want exec, sql, or duckdb)", mode)
	}
}

// resolveDSN injects a password when the DSN carries none: the config value
// first, the OS keyring after that.
func resolveDSN(dsn, user, password string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid DSN: %w", err)
	}
	if u.User == nil || u.User.Username() == "" {
		return dsn, nil
	}
	if _, has := u.User.Password(); has {
		return dsn, nil
	}

	if password == "" {
		name := firstNonEmpty(user, u.User.Username())
		password, err = security.GetPassword(name)
		if err != nil {
			return "", err
		}
	}
	if password == "" {
		return dsn, nil
	}
	u.User = url.UserPassword(u.User.Username(), password)
	return u.String(), nil
}

func duckDBBin(cfg *models.Config) string {
	return firstNonEmpty(flagDuckDBBin, viper.GetString("gateway.duckdb_bin"), cfg.Gateway.DuckDBBin)
}

func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid gateway timeout %q: %w", s, err)
	}
	return d, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pharmaorders/pedidos/pkg/config"
	"github.com/pharmaorders/pedidos/pkg/stores"
)

func newInitCommand() *cobra.Command {
	var (
		force    bool
		xmlPath  string
		driver   string
		endpoint string
		noSQL    bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file and the order stores",
		Long: `Write a configuration file and create the XML order document.

Unless --no-sql is given, the database store is initialised too: the database
and the records table are created when missing. --driver sqlite keeps the
database in a local file, suitable for single-machine use.`,
		Example: `  # MySQL on localhost (database drogueria_db)
  pedidos init

  # Everything in the current directory
  pedidos init --driver sqlite --endpoint ./pedidos.db

  # XML only
  pedidos init --no-sql --xml-path /var/lib/pedidos/medicamentos.xml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = config.DefaultPath
			}
			log.Info().Str("config", path).Str("driver", driver).Bool("sql", !noSQL).Msg("Initializing pedidos")

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to check config file: %w", err)
			}

			cfg := config.Default()
			if xmlPath != "" {
				cfg.XML.Path = xmlPath
			}
			cfg.SQL.Enabled = !noSQL
			cfg.SQL.Driver = driver
			switch {
			case endpoint != "":
				cfg.SQL.Endpoint = endpoint
			case driver == stores.DriverSQLite:
				cfg.SQL.Endpoint = "pedidos.db"
			}
			if noSQL {
				cfg.Backend = "xml"
			}
			if backendFlag != "" {
				cfg.Backend = backendFlag
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0700); err != nil {
					return fmt.Errorf("failed to create directory %s: %w", dir, err)
				}
			}
			if err := cfg.Write(path); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Created config file: %s\n", path)

			configPath = path
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintf(out, "✓ Order document ready: %s\n", s.selector.XML().Path())

			if sqlStore := s.selector.SQL(); sqlStore != nil {
				// Open already tried unless XML was preferred.
				var connErr error
				if s.cfg.Backend == stores.PreferXML {
					connErr = sqlStore.ConnectWithRetry(cmd.Context())
				} else if sqlStore.State() != stores.StateConnected {
					connErr = stores.ErrBackendUnavailable
				}
				if connErr != nil {
					fmt.Fprintf(out, "✗ Database not reachable, XML backend remains usable: %v\n", connErr)
				} else {
					fmt.Fprintf(out, "✓ Database ready: %s %s\n", cfg.SQL.Driver, cfg.SQL.Endpoint)
				}
			}

			fmt.Fprintf(out, "\nActive backend: %s\n", s.selector.Current())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")
	cmd.Flags().StringVar(&xmlPath, "xml-path", "", "location of the XML order document")
	cmd.Flags().StringVar(&driver, "driver", stores.DriverMySQL, "database driver: mysql or sqlite")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "MySQL DSN without credentials, or sqlite file path")
	cmd.Flags().BoolVar(&noSQL, "no-sql", false, "do not configure a database store")

	return cmd
}

package cmd

import (
	"errors"
	"fmt"
	"os"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/cobra"

	"github.com/hmans/catalog/internal/config"
)

var (
	initForce  bool
	initDriver string
	initDSN    string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a catalog config file",
	Long: `Creates a .catalog.yml config file (or the file given with --config)
with default settings and a freshly generated token secret.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		c := config.Default()
		if initDriver != "" && initDriver != c.Storage.Driver {
			c.Storage.Driver = initDriver
			c.Storage.DSN = ""
		}
		if initDSN != "" {
			c.Storage.DSN = initDSN
		}
		secret, err := gonanoid.New(48)
		if err != nil {
			return fmt.Errorf("generating secret: %w", err)
		}
		c.Auth.Secret = secret
		if err := c.Validate(); err != nil {
			return err
		}

		if err := c.Save(configPath); err != nil {
			return fmt.Errorf("failed to create config: %w", err)
		}
		fmt.Printf("Wrote %s\n", configPath)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
	initCmd.Flags().StringVar(&initDriver, "driver", "", "Storage driver (memory, sqlite3, postgres)")
	initCmd.Flags().StringVar(&initDSN, "dsn", "", "Storage DSN for the chosen driver")
	rootCmd.AddCommand(initCmd)
}

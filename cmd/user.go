package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hmans/catalog/internal/ui"
)

var (
	userGenre    string
	userPassword string
	userLogin    bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage catalog users",
}

var userCreateCmd = &cobra.Command{
	Use:     "create <username>",
	Aliases: []string{"add", "new"},
	Short:   "Create a user",
	Long: `Create a user who can log in through the GraphQL API.

Without --password the password is prompted for on a terminal, or read as
a single line from stdin otherwise.

Examples:
  catalog user create mluukkai --genre refactoring
  echo secret | catalog user create mluukkai --genre refactoring --login`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := userPassword
		if !cmd.Flags().Changed("password") {
			var err error
			password, err = promptPassword()
			if err != nil {
				return err
			}
		}

		u, err := app.catalog.CreateUser(cmd.Context(), args[0], userGenre, password)
		if err != nil {
			return err
		}
		fmt.Println(ui.RenderUser(u))

		if userLogin {
			token, err := app.catalog.Login(cmd.Context(), u.Username, password)
			if err != nil {
				return err
			}
			fmt.Println(token)
		}
		return nil
	},
}

func promptPassword() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return readPasswordLine(os.Stdin)
	}

	var password string
	err := huh.NewInput().
		Title("Password").
		EchoMode(huh.EchoModePassword).
		Value(&password).
		Run()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}

// readPasswordLine returns the first line of r without its line ending.
func readPasswordLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	userCreateCmd.Flags().StringVarP(&userGenre, "genre", "g", "", "Favorite genre")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "Password (prompted for when omitted)")
	userCreateCmd.Flags().BoolVar(&userLogin, "login", false, "Print a token for the new user")
	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}

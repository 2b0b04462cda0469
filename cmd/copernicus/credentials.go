package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/robert-malhotra/copernicus-cli/internal/credentials"
)

var userFlag = &cli.StringFlag{
	Name:     "user",
	Usage:    "account user name (usually an e-mail address)",
	Required: true,
}

func newCredentialsCommand() *cli.Command {
	return &cli.Command{
		Name:  "credentials",
		Usage: "Manage the password kept in the OS keyring",
		Commands: []*cli.Command{
			{
				Name:   "set",
				Usage:  "Read a password from stdin and store it for --user",
				Flags:  []cli.Flag{userFlag},
				Action: setCredentialsAction,
			},
			{
				Name:   "delete",
				Usage:  "Remove the stored password for --user",
				Flags:  []cli.Flag{userFlag},
				Action: deleteCredentialsAction,
			},
			{
				Name:   "logout",
				Usage:  "Forget the cached token",
				Action: logoutAction,
			},
		},
	}
}

func setCredentialsAction(_ context.Context, cmd *cli.Command) error {
	pass, err := promptPassword(os.Stdin, os.Stderr)
	if err != nil {
		return err
	}
	user := cmd.String(userFlag.Name)
	if err := credentials.StorePassword(user, pass); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "stored password for %s; set %s=%s to use it\n", user, credentials.EnvUser, user)
	return nil
}

func deleteCredentialsAction(_ context.Context, cmd *cli.Command) error {
	return credentials.DeletePassword(cmd.String(userFlag.Name))
}

func logoutAction(_ context.Context, cmd *cli.Command) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	return store.SaveToken(nil)
}

// promptPassword reads a password from in. A terminal gets a prompt on
// prompt and no echo; anything else is read as a line.
func promptPassword(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return readPassword(in)
	}
	fmt.Fprint(prompt, "Password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty password")
	}
	return string(raw), nil
}

// readPassword reads the first line of r without its line ending.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	pass := strings.TrimRight(line, "\r\n")
	if pass == "" {
		return "", fmt.Errorf("empty password")
	}
	return pass, nil
}

package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andrewkuryan/brownie/srp"
)

type verifierOutput struct {
	Login       string `json:"login"`
	Salt        string `json:"salt"`
	VerifierHex string `json:"verifierHex"`
}

var verifierCmd = &cobra.Command{
	Use:   "verifier <login>",
	Short: "Compute SRP credentials for a login",
	Long: `Reads a password from stdin and prints a fresh salt and the SRP verifier
for the configured group, in the shape PUT /api/user/fulfill expects.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		group, err := srpGroup(v)
		if err != nil {
			return err
		}
		password, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}
		out, err := computeVerifier(group, args[0], password)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(verifierCmd)
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("empty password")
	}
	return password, nil
}

func computeVerifier(group srp.Group, login, password string) (verifierOutput, error) {
	engine, err := srp.NewFromGroup(group)
	if err != nil {
		return verifierOutput{}, err
	}
	salt, err := srp.GenerateSalt()
	if err != nil {
		return verifierOutput{}, err
	}
	verifier := engine.ComputeVerifier(srp.ComputeX(salt, login, password))
	return verifierOutput{Login: login, Salt: salt, VerifierHex: srp.Hex(verifier)}, nil
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/andrewkuryan/brownie/signature"
)

type keyPair struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

var keygenJSONOutput bool

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the server response signing key",
	Long: `Generates a P-521 key pair. The private key (base64 PKCS#8) goes into
ecdsa.private-key (BROWNIE_ECDSA_PRIVATE_KEY); the public key (base64 PKIX)
is handed to the web client so it can check response signatures.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, priv, err := signature.GenerateKeyPair()
		if err != nil {
			return err
		}
		return printKeyPair(cmd.OutOrStdout(), keyPair{PublicKey: pub, PrivateKey: priv}, keygenJSONOutput)
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().BoolVar(&keygenJSONOutput, "json", false, "Output the key pair as JSON")
}

func printKeyPair(w io.Writer, kp keyPair, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(kp)
	}
	fmt.Fprintf(w, "BROWNIE_ECDSA_PRIVATE_KEY=%s\n", kp.PrivateKey)
	fmt.Fprintf(w, "PUBLIC_KEY=%s\n", kp.PublicKey)
	return nil
}

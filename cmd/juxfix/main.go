package main

import (
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jrjsmrtn/juxfix"
	"github.com/jrjsmrtn/juxfix/batch"
	"github.com/jrjsmrtn/juxfix/provenance"
)

var log = zap.NewNop().Sugar()

var rootCmd = &cobra.Command{
	Use:   "juxfix",
	Short: "Prepare and verify JUnit XML test fixtures",
	Long: `juxfix prepares JUnit XML fixture trees for test-result processing:

  enrich    add jux.* provenance properties to raw fixtures
  sign      add an enveloped XMLDSig signature to enriched fixtures
  verify    check the enveloped signature of signed fixtures
  validate  check fixtures for well-formedness and XSD conformance

Each command walks the source tree, processes every *.xml file, and exits
non-zero when any file fails.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if !verbose {
			return nil
		}
		l, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		log = l.Sugar()
		return nil
	},
}

func newEnrichCmd() *cobra.Command {
	var metadataFile string
	cmd := &cobra.Command{
		Use:   "enrich <raw_dir> <enriched_dir>",
		Short: "Add jux.* provenance properties to raw fixtures",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			md := provenance.Collect(".")
			if metadataFile != "" {
				f, err := os.Open(metadataFile)
				if err != nil {
					return fmt.Errorf("open metadata file: %w", err)
				}
				err = md.MergeJSON(f)
				f.Close()
				if err != nil {
					return err
				}
			}

			runner := &batch.Runner{Source: args[0], Output: args[1], Out: cmd.OutOrStdout(), Log: log}
			sum, err := runner.Run(func(rel string, data []byte) ([]byte, error) {
				doc, err := juxfix.Parse(data)
				if err != nil {
					return nil, err
				}
				juxfix.Enrich(doc, md)
				return doc.Bytes()
			})
			if err != nil {
				return err
			}
			return sum.Err()
		},
	}
	cmd.Flags().StringVar(&metadataFile, "metadata-file", "", "JSON file with custom metadata values")
	return cmd
}

func newSignCmd() *cobra.Command {
	var keyPath, certPath string
	cmd := &cobra.Command{
		Use:   "sign <enriched_dir> <signed_dir>",
		Short: "Add an enveloped XMLDSig signature to enriched fixtures",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := juxfix.LoadPrivateKey(keyPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded private key from %s\n", keyPath)

			var cert *x509.Certificate
			if certPath != "" {
				cert, err = juxfix.LoadCertificate(certPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Loaded certificate from %s\n", certPath)
			}

			env, err := juxfix.NewEnveloper(key, cert)
			if err != nil {
				return err
			}

			runner := &batch.Runner{Source: args[0], Output: args[1], Out: cmd.OutOrStdout(), Log: log}
			sum, err := runner.Run(func(rel string, data []byte) ([]byte, error) {
				doc, err := juxfix.Parse(data)
				if err != nil {
					return nil, err
				}
				if err := juxfix.Sign(doc, env); err != nil {
					return nil, err
				}
				return doc.Bytes()
			})
			if err != nil {
				return err
			}
			return sum.Err()
		},
	}
	cmd.Flags().StringVar(&keyPath, "key", "", "path to private key file (PEM or OpenSSH format)")
	cmd.Flags().StringVar(&certPath, "cert", "", "optional X.509 certificate to embed in the signature")
	cmd.MarkFlagRequired("key")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var certPath string
	cmd := &cobra.Command{
		Use:   "verify <signed_dir>",
		Short: "Check the enveloped signature of signed fixtures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cert, err := juxfix.LoadCertificate(certPath)
			if err != nil {
				return err
			}
			roots := []*x509.Certificate{cert}

			runner := &batch.Runner{Source: args[0], Out: cmd.OutOrStdout(), Log: log}
			sum, err := runner.RunCheck(func(rel string, data []byte) error {
				return juxfix.VerifyEnveloped(data, roots)
			})
			if err != nil {
				return err
			}
			return sum.Err()
		},
	}
	cmd.Flags().StringVar(&certPath, "cert", "", "trusted X.509 certificate for signature verification")
	cmd.MarkFlagRequired("cert")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var schemaPath string
	var includeMalformed bool
	cmd := &cobra.Command{
		Use:   "validate <fixtures_dir>",
		Short: "Check fixtures for well-formedness and XSD conformance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var schema *juxfix.Schema
			if schemaPath != "" {
				var err error
				schema, err = juxfix.LoadSchema(schemaPath)
				if err != nil {
					return err
				}
				defer schema.Close()
				fmt.Fprintf(cmd.OutOrStdout(), "Loaded schema: %s\n", schemaPath)
			}

			runner := &batch.Runner{
				Source:           args[0],
				IncludeMalformed: includeMalformed,
				Out:              cmd.OutOrStdout(),
				Log:              log,
			}
			sum, err := runner.RunCheck(func(rel string, data []byte) error {
				if o := juxfix.Validate(data, schema); !o.OK() {
					return errors.New(o.Describe())
				}
				return nil
			})
			if err != nil {
				return err
			}
			return sum.Err()
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "XSD schema file to validate against")
	cmd.Flags().BoolVar(&includeMalformed, "include-malformed", false, "include fixtures under malformed/ directories")
	return cmd
}

func main() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable diagnostic logging")
	rootCmd.AddCommand(newEnrichCmd(), newSignCmd(), newVerifyCmd(), newValidateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

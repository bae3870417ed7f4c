package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"devfest-certs/certificate-portal/certificate-portal-backend/internal/certificates"
	"devfest-certs/certificate-portal/certificate-portal-backend/pkg/pdf"
	"devfest-certs/certificate-portal/certificate-portal-backend/pkg/security"
)

func templateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage the certificate template",
	}
	cmd.AddCommand(templateSampleCmd())
	cmd.AddCommand(templateUploadCmd())
	cmd.AddCommand(templateShowCmd())
	return cmd
}

func templateSampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample [output.pdf]",
		Short: "Write a placeholder certificate template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options := pdf.DefaultSampleOptions()
			options.Title, _ = cmd.Flags().GetString("title")
			options.Width, _ = cmd.Flags().GetFloat64("width")
			options.Height, _ = cmd.Flags().GetFloat64("height")

			data, err := pdf.SampleTemplate(options)
			if err != nil {
				return err
			}
			if err := writeFile(args[0], data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", args[0], len(data))
			return nil
		},
	}

	defaults := pdf.DefaultSampleOptions()
	cmd.Flags().String("title", defaults.Title, "Heading printed at the top of the page")
	cmd.Flags().Float64("width", defaults.Width, "Page width in points")
	cmd.Flags().Float64("height", defaults.Height, "Page height in points")

	return cmd
}

func templateUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload [template.pdf]",
		Short: "Make a PDF the active certificate template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			desc, err := a.Templates.Upload(cmd.Context(), filepath.Base(args[0]), data)
			if err != nil {
				return err
			}
			return printJSON(cmd, desc)
		},
	}
}

func templateShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Describe the active certificate template",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			desc, err := a.Templates.Describe(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, desc)
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [roster.xlsx|roster.csv]",
		Short: "Import attendees from a roster spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := a.Attendees.ImportFile(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [attendees.xlsx]",
		Short: "Export the attendee roster as a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := a.Attendees.Export(cmd.Context(), f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
}

func issueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue [ticket-id]",
		Short: "Generate the certificate for a ticket ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			cert, err := a.Certificates.Issue(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				out = cert.Filename
			}
			if err := writeFile(out, cert.Data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s for %s\n", out, cert.Name)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file (defaults to the suggested filename)")

	return cmd
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [ticket-id]",
		Short: "Check whether a ticket ID belongs to a registered attendee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Certificates.Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := printJSON(cmd, result); err != nil {
				return err
			}
			if !result.Verified {
				return certificates.ErrNotFound
			}
			return nil
		},
	}
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := security.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

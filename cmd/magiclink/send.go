package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/magiclink/internal/vendors"
	"github.com/dmitrymomot/magiclink/pkg/verification"
)

func newSendCmd(a *app) *cobra.Command {
	var (
		to, link, token, vendor, templateDir string
		expiresIn                            time.Duration
		dryRun                               bool
	)

	cmd := &cobra.Command{
		Use:   "send --to ADDRESS --url LINK",
		Short: "Send one verification email",
		Example: `  magiclink send --to user@example.com --url "https://app.example.com/api/auth/callback/email?token=abc"
  magiclink send --to user@example.com --url https://app.example.com/cb --dry-run`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			if vendor != "" {
				a.cfg.Vendor = vendor
			}
			if templateDir != "" {
				a.cfg.TemplateDir = templateDir
			}

			req := &verification.Request{Identifier: to, URL: link, Token: token}
			if expiresIn > 0 {
				req.Expires = time.Now().Add(expiresIn)
			}

			if dryRun {
				msg, err := verification.BuildMessage(cmd.Context(), vendors.Composer(a.cfg.TemplateDir), a.cfg.Verification, req)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetEscapeHTML(false)
				enc.SetIndent("", "  ")
				return enc.Encode(msg)
			}

			d, err := vendors.Build(a.cfg, vendors.Deps{
				Client: &http.Client{},
				Logger: a.log,
			})
			if err != nil {
				return err
			}
			if err := d.Dispatch(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent via %s to %s\n",
				verification.VendorName(d), verification.MaskIdentifier(to))
			return nil
		}),
	}

	f := cmd.Flags()
	f.StringVar(&to, "to", "", "recipient address")
	f.StringVar(&link, "url", "", "sign-in link")
	f.StringVar(&token, "token", "", "token embedded in the link")
	f.DurationVar(&expiresIn, "expires-in", 0, "link lifetime shown in the email")
	f.StringVar(&vendor, "vendor", "", "override MAGICLINK_VENDOR")
	f.StringVar(&templateDir, "template-dir", "", `override MAGICLINK_TEMPLATE_DIR ("builtin" for embedded templates)`)
	f.BoolVar(&dryRun, "dry-run", false, "print the composed message instead of sending")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/synergyayush/lookindharamshala/pkg/deeplink"
)

func newLinksCmd() *cobra.Command {
	links := &cobra.Command{
		Use:   "links",
		Short: "Build map, WhatsApp and mail links",
	}

	var message string
	whatsapp := &cobra.Command{
		Use:   "whatsapp <phone>",
		Short: "Build a WhatsApp chat link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if deeplink.Digits(args[0]) == "" {
				return fmt.Errorf("phone %q has no digits", args[0])
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), deeplink.WhatsApp(args[0], message))
			return err
		},
	}
	whatsapp.Flags().StringVarP(&message, "message", "m", "", "prefilled message")

	mapCmd := &cobra.Command{
		Use:   "map <query...>",
		Short: "Build a map search link",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), deeplink.MapSearch(strings.Join(args, " ")))
			return err
		},
	}

	var subject, body string
	mailto := &cobra.Command{
		Use:   "mailto <address>",
		Short: "Build a mail draft link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), deeplink.Mailto(args[0], subject, body))
			return err
		},
	}
	mailto.Flags().StringVarP(&subject, "subject", "s", "", "mail subject")
	mailto.Flags().StringVarP(&body, "body", "b", "", "mail body")

	links.AddCommand(whatsapp, mapCmd, mailto)
	return links
}

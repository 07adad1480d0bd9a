package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/ShinyNito/wxdraft/officialaccount"
)

func newDraftsCmd(flags *rootFlags) *cobra.Command {
	var offset, count int

	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Print one page of draft articles as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := officialaccount.ValidatePage(offset, count); err != nil {
				return err
			}
			a, err := loadApp(cmd, flags)
			if err != nil {
				return err
			}

			page, err := a.client.FetchDraftPage(cmd.Context(), offset, count)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(page)
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "draft offset")
	cmd.Flags().IntVar(&count, "count", officialaccount.MaxDraftPageSize, "drafts per page (1-20)")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gtu-cse396/sdbelt/internal/domain/scans"
)

func newArchiveCmd(load loader) *cobra.Command {
	var (
		productID string
		start     string
		end       string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Export scans to the MinIO archive bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := scans.Filter{ProductID: productID, Limit: limit}
			if start != "" {
				ts, err := scans.ParseLocalDateTime(start)
				if err != nil {
					return fmt.Errorf("--start: %w", err)
				}
				f.Start = &ts
			}
			if end != "" {
				ts, err := scans.ParseLocalDateTime(end)
				if err != nil {
					return fmt.Errorf("--end: %w", err)
				}
				f.End = &ts
			}

			c, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer closeLogged(c)

			res, err := c.Scans.Archive(cmd.Context(), f)
			if err != nil {
				return err
			}
			c.Logger.Info("archive written", zap.String("key", res.Key), zap.Int("count", res.Count))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&productID, "product", "", "only scans of this product id")
	cmd.Flags().StringVar(&start, "start", "", "earliest timestamp, e.g. 2024-03-01T00:00:00")
	cmd.Flags().StringVar(&end, "end", "", "latest timestamp")
	cmd.Flags().IntVar(&limit, "limit", scans.MaxLimit, "maximum number of scans")
	return cmd
}

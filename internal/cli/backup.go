package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"scrapbook/internal/backup"
)

func newBackupCmd(opts *rootOptions) *cobra.Command {
	var dir string
	var keep int

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot every album now",
		Long: `Write one snapshot of all albums and pages to backup.dir and, when
backup.mongo_uri is set, to MongoDB. Works whether or not scheduled backups
are enabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			cfg := opts.cfg.Backup
			if dir != "" {
				cfg.Dir = dir
			}
			if cmd.Flags().Changed("keep") {
				cfg.Keep = keep
			}

			st, err := openStack(ctx, opts.cfg, nil)
			if err != nil {
				return err
			}
			defer st.Close()

			sinks, closeSinks, err := backupSinks(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeSinks()

			snap, err := backup.NewRunner(st.albums, sinks, logger).Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot %s: %d albums, %d pages\n", snap.ID, len(snap.Albums), snap.PageCount())
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "write to this directory (overrides backup.dir)")
	cmd.Flags().IntVar(&keep, "keep", 0, "snapshots to keep, 0 keeps all (overrides backup.keep)")
	return cmd
}

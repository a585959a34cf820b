package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"scrapbook/internal/client"
	"scrapbook/internal/config"
	"scrapbook/internal/domain"
	"scrapbook/internal/editor"
	"scrapbook/internal/imaging"
)

func newRemoteCmd(opts *rootOptions) *cobra.Command {
	var apiBase string
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Edit albums on a running server",
		Long: `Talk to a scrapbook server over its REST API the way the browser editor
does. Edits are saved with the editor's debounced scheduler and flushed before
the command exits.`,
	}
	cmd.PersistentFlags().StringVar(&apiBase, "api", "", "server base URL (overrides editor.api_base)")

	cmd.AddCommand(newRemoteAlbumsCmd(opts, &apiBase))
	cmd.AddCommand(newRemoteAddCmd(opts, &apiBase))
	cmd.AddCommand(newRemoteRenamePageCmd(opts, &apiBase))
	return cmd
}

// openEditor loads the server's albums into a headless editor. Close it to
// flush pending saves.
func openEditor(ctx context.Context, cfg *config.Config, apiBase string) (*editor.Editor, error) {
	if apiBase == "" {
		apiBase = cfg.Editor.APIBase
	}
	ed := editor.New(client.New(apiBase), editor.Options{
		SaveDelay: cfg.SaveDelay(),
		Logger:    loggerFromContext(ctx).WithPrefix("editor"),
		Probe:     imaging.Dimensions,
	})
	if err := ed.Load(ctx); err != nil {
		ed.Close(ctx)
		return nil, err
	}
	return ed, nil
}

func newRemoteAlbumsCmd(opts *rootOptions, apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "albums",
		Short: "List albums and their pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ed, err := openEditor(ctx, opts.cfg, *apiBase)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, a := range ed.Store().Albums() {
				fmt.Fprintf(out, "%s (#%d, %d pages)\n", a.Title, a.ID, len(a.Pages))
				for _, p := range a.Pages {
					fmt.Fprintf(out, "  #%d  %s  %d blocks\n", p.ID, p.Title, len(p.Content))
				}
			}
			return ed.Close(ctx)
		},
	}
}

func newRemoteAddCmd(opts *rootOptions, apiBase *string) *cobra.Command {
	var pageID int64
	var font string

	cmd := &cobra.Command{
		Use:   "add <text|photo|sticker> <value-or-file>",
		Short: "Add a block to a page",
		Long: `Add a block to --page, or to the first page of the first album. Photos
and stickers may be given as a file path, which is embedded as a data URL.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kind := domain.BlockType(args[0])
			switch kind {
			case domain.BlockTypeText, domain.BlockTypePhoto, domain.BlockTypeSticker:
			default:
				return fmt.Errorf("unknown block type %q (want text, photo or sticker)", args[0])
			}
			value := args[1]
			if kind != domain.BlockTypeText {
				v, err := loadValue(value)
				if err != nil {
					return err
				}
				value = v
			}

			ed, err := openEditor(ctx, opts.cfg, *apiBase)
			if err != nil {
				return err
			}
			if pageID != 0 {
				if err := ed.SetActivePage(ctx, pageID); err != nil {
					return errors.Join(err, ed.Close(ctx))
				}
			}

			var b domain.Block
			switch kind {
			case domain.BlockTypeText:
				b, err = ed.AddText(ctx, value, font)
			case domain.BlockTypePhoto:
				b, err = ed.AddPhoto(ctx, value)
			default:
				b, err = ed.AddSticker(ctx, value)
			}
			if err != nil {
				return errors.Join(err, ed.Close(ctx))
			}
			if err := ed.Close(ctx); err != nil {
				return fmt.Errorf("save page: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s block %s to page %d\n", kind, b.ID, ed.Store().ActivePageID())
			return nil
		},
	}

	cmd.Flags().Int64Var(&pageID, "page", 0, "page id to add to")
	cmd.Flags().StringVar(&font, "font", "", "font family for text blocks")
	return cmd
}

func newRemoteRenamePageCmd(opts *rootOptions, apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rename-page <page-id> <title>",
		Short: "Rename a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid page id %q", args[0])
			}
			ed, err := openEditor(ctx, opts.cfg, *apiBase)
			if err != nil {
				return err
			}
			if err := ed.RenamePage(id, args[1]); err != nil {
				return errors.Join(err, ed.Close(ctx))
			}
			return ed.Close(ctx)
		},
	}
}

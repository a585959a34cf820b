package cli

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scrapbook/internal/assets"
)

func newAssetsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Manage custom stickers, photos and fonts",
	}
	cmd.AddCommand(newAssetsListCmd(opts))
	cmd.AddCommand(newAssetsAddCmd(opts))
	cmd.AddCommand(newAssetsRemoveCmd(opts))
	return cmd
}

func openLibrary(cmd *cobra.Command, opts *rootOptions) (*assets.Library, error) {
	return assets.Open(opts.cfg.Assets.Dir, opts.cfg.Assets.QuotaBytes, loggerFromContext(cmd.Context()))
}

func newAssetsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [stickers|photos|fonts]",
		Short: "List library items, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary(cmd, opts)
			if err != nil {
				return err
			}
			kinds := assets.Kinds
			if len(args) == 1 {
				k, err := assets.ParseKind(args[0])
				if err != nil {
					return err
				}
				kinds = []assets.Kind{k}
			}
			out := cmd.OutOrStdout()
			for _, k := range kinds {
				items := listItems(lib, k)
				fmt.Fprintf(out, "%s (%d)\n", k, len(items))
				for i, item := range items {
					fmt.Fprintf(out, "  #%d  %s\n", i+1, shorten(item, 72))
				}
			}
			fmt.Fprintf(out, "%d bytes used\n", lib.Usage())
			return nil
		},
	}
}

func newAssetsAddCmd(opts *rootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "add <sticker|photo|font> <value-or-file>",
		Short: "Add an item to the library",
		Long: `Add a sticker (an emoji, URL or image file), a photo (a URL or image file,
downscaled before storing) or a font file (requires --name).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := assets.ParseKind(args[0])
			if err != nil {
				return err
			}
			value, err := loadValue(args[1])
			if err != nil {
				return err
			}
			lib, err := openLibrary(cmd, opts)
			if err != nil {
				return err
			}
			switch k {
			case assets.KindStickers:
				err = lib.AddSticker(value)
			case assets.KindPhotos:
				err = lib.AddPhoto(value)
			case assets.KindFonts:
				if name == "" {
					name = strings.TrimSuffix(filepath.Base(args[1]), filepath.Ext(args[1]))
				}
				err = lib.AddFont(name, value)
			}
			if errors.Is(err, assets.ErrQuotaExceeded) {
				return fmt.Errorf("%w: remove some items first (%d bytes used)", err, lib.Usage())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added to %s\n", k)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "font family name (defaults to the file name)")
	return cmd
}

func newAssetsRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <stickers|photos|fonts> <#index|value>",
		Short: "Remove an item by its list index or value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := assets.ParseKind(args[0])
			if err != nil {
				return err
			}
			lib, err := openLibrary(cmd, opts)
			if err != nil {
				return err
			}
			value, err := resolveItem(listItems(lib, k), args[1])
			if err != nil {
				return err
			}
			removed, err := lib.Remove(k, value)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no %s item matches %q", k, shorten(args[1], 40))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed from %s\n", k)
			return nil
		},
	}
}

// listItems returns the values Remove matches on: sources for stickers and
// photos, names for fonts.
func listItems(lib *assets.Library, k assets.Kind) []string {
	switch k {
	case assets.KindStickers:
		return lib.Stickers()
	case assets.KindPhotos:
		return lib.Photos()
	case assets.KindFonts:
		fonts := lib.Fonts()
		names := make([]string, len(fonts))
		for i, f := range fonts {
			names[i] = f.Name
		}
		return names
	}
	return nil
}

// resolveItem maps "#2" to the second item; anything else is a value.
func resolveItem(items []string, arg string) (string, error) {
	raw, ok := strings.CutPrefix(arg, "#")
	if !ok {
		return arg, nil
	}
	i, err := strconv.Atoi(raw)
	if err != nil || i < 1 || i > len(items) {
		return "", fmt.Errorf("index %s out of range (1-%d)", arg, len(items))
	}
	return items[i-1], nil
}

// loadValue turns a readable file into a data URL and passes anything else
// (emoji, URLs, data URLs) through.
func loadValue(arg string) (string, error) {
	info, err := os.Stat(arg)
	if err != nil || info.IsDir() {
		return arg, nil
	}
	f, err := os.Open(arg)
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", arg, err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(arg)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func shorten(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "…"
	}
	return s
}

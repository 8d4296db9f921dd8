package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/kakite/internal/chars"
	"github.com/verte-zerg/kakite/internal/config"
	"github.com/verte-zerg/kakite/internal/kanjivg"
	"github.com/verte-zerg/kakite/internal/pathend"
	"github.com/verte-zerg/kakite/internal/store"
	"github.com/verte-zerg/kakite/internal/strokedata"
)

var (
	strokesBuildSrc string
	strokesBuildOut string
	strokesShowChar string
)

func newStrokesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strokes",
		Short: "Build and inspect stroke data",
	}

	build := &cobra.Command{
		Use:   "build",
		Short: "Build stroke bundles from KanjiVG",
		Args:  cobra.NoArgs,
		RunE:  runStrokesBuildCmd,
	}
	build.Flags().StringVar(&strokesBuildSrc, "src", "", "KanjiVG kanji directory or master zip (default: download)")
	build.Flags().StringVar(&strokesBuildOut, "out", "", "output directory (default: --strokes-dir)")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the reference strokes of a character",
		Args:  cobra.NoArgs,
		RunE:  runStrokesShowCmd,
	}
	show.Flags().StringVar(&strokesShowChar, "char", "", "character to show")
	_ = show.MarkFlagRequired("char")

	clearCache := &cobra.Command{
		Use:   "clear-cache",
		Short: "Forget stroke data fetched from the network",
		Args:  cobra.NoArgs,
		RunE:  runStrokesClearCacheCmd,
	}

	cmd.AddCommand(build, show, clearCache)
	return cmd
}

func runStrokesBuildCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadFileConfig(cmd); err != nil {
		return err
	}
	outDir := strokesBuildOut
	if outDir == "" {
		outDir = strokesDir
	}

	src := strokesBuildSrc
	if src == "" {
		logErrln("Fetching KanjiVG archive...")
		archive, err := kanjivg.DownloadArchive(context.Background(), kanjivg.ArchiveURL, config.DefaultArchiveCacheDir())
		if err != nil {
			return fmt.Errorf("failed to download KanjiVG archive: %w", err)
		}
		if archive.Cached {
			logErrf("Using cached archive %s\n", archive.Path)
		} else {
			logErrf("Downloaded archive %s\n", archive.Path)
		}
		src = archive.Path
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat --src: %w", err)
	}
	var collection kanjivg.Collection
	archivePath := ""
	if info.IsDir() {
		collection, err = kanjivg.ReadDir(src)
	} else {
		archivePath = src
		collection, err = kanjivg.ReadArchive(src)
	}
	if err != nil {
		return fmt.Errorf("failed to read KanjiVG data: %w", err)
	}
	if len(collection) == 0 {
		return fmt.Errorf("no KanjiVG characters found in %s", src)
	}

	bundle := strokedata.Build(collection)
	if err := bundle.Write(outDir); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	logErrf("Wrote %d kana, %d common kanji and %d other characters to %s\n",
		bundle.Count(strokedata.TierKana), bundle.Count(strokedata.TierCommon), bundle.Count(strokedata.TierRest), outDir)

	if err := kanjivg.WriteAttribution(archivePath, outDir); err != nil {
		return fmt.Errorf("failed to write attribution: %w", err)
	}
	logErrln("Wrote ATTRIBUTION.txt")
	return nil
}

func runStrokesShowCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadFileConfig(cmd); err != nil {
		return err
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	provider, err := openProvider(st, newLogger())
	if err != nil {
		return err
	}
	character := chars.Normalize(strokesShowChar)
	if err := showStrokes(context.Background(), provider, character, cmd.OutOrStdout()); err != nil {
		return err
	}
	if !provider.IsBundled(character) {
		logErrln("Not in the kana or common kanji bundle; resolved from tier 3, the cache or the network")
	}
	return nil
}

func showStrokes(ctx context.Context, src strokeSource, character string, w io.Writer) error {
	data, err := src.Strokes(ctx, character)
	if err != nil {
		return fmt.Errorf("failed to load strokes: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s (%s) %d strokes\n", data.Character, chars.TypeOf(data.Character), len(data.Strokes)); err != nil {
		return err
	}
	for i, stroke := range data.Strokes {
		start := stroke.Start()
		end, ok := pathend.ResolveEnd(stroke)
		note := ""
		if !ok {
			note = " (malformed path)"
		}
		if _, err := fmt.Fprintf(w, "%2d  start %.3f,%.3f  end %.3f,%.3f%s  %s\n",
			i+1, start.X, start.Y, end.X, end.Y, note, stroke.Path); err != nil {
			return err
		}
	}
	return nil
}

func runStrokesClearCacheCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadFileConfig(cmd); err != nil {
		return err
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	ctx := context.Background()
	n, err := st.CachedStrokeCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count cached strokes: %w", err)
	}
	provider, err := openProvider(st, newLogger())
	if err != nil {
		return err
	}
	if err := provider.ClearCache(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	logErrf("Removed %d cached characters\n", n)
	return nil
}

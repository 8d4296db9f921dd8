package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/kakite/internal/config"
	"github.com/verte-zerg/kakite/internal/model"
	"github.com/verte-zerg/kakite/internal/store"
	"github.com/verte-zerg/kakite/internal/wordlist"
)

var (
	wordsReading string
	wordsMeaning string
	wordsFile    string
)

func newWordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "words",
		Short: "Manage saved practice words",
	}

	add := &cobra.Command{
		Use:   "add [word...]",
		Short: "Save words to practice",
		RunE:  runWordsAddCmd,
	}
	add.Flags().StringVar(&wordsReading, "reading", "", "reading of the word")
	add.Flags().StringVar(&wordsMeaning, "meaning", "", "meaning of the word")
	add.Flags().StringVar(&wordsFile, "file", "", "import a word file (word<TAB>reading<TAB>meaning)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved words",
		Args:  cobra.NoArgs,
		RunE:  runWordsListCmd,
	}

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a saved word",
		Args:  cobra.ExactArgs(1),
		RunE:  runWordsRemoveCmd,
	}

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the reading and meaning of a saved word",
		Args:  cobra.ExactArgs(1),
		RunE:  runWordsUpdateCmd,
	}
	update.Flags().StringVar(&wordsReading, "reading", "", "reading of the word")
	update.Flags().StringVar(&wordsMeaning, "meaning", "", "meaning of the word")

	cmd.AddCommand(add, list, remove, update)
	return cmd
}

func withStore(fn func(ctx context.Context, st *store.Store) error) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	return fn(context.Background(), st)
}

func runWordsAddCmd(cmd *cobra.Command, args []string) error {
	entries, err := wordEntries(args)
	if err != nil {
		return err
	}
	return withStore(func(ctx context.Context, st *store.Store) error {
		return addWords(ctx, st, entries, cmd.OutOrStdout())
	})
}

func wordEntries(args []string) ([]wordlist.Entry, error) {
	var entries []wordlist.Entry
	if wordsFile != "" {
		loaded, err := wordlist.LoadEntries(wordsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load word file: %w", err)
		}
		entries = append(entries, loaded...)
	}
	for _, arg := range args {
		entries = append(entries, wordlist.Entry{Word: arg, Reading: wordsReading, Meaning: wordsMeaning})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("provide words as arguments or with --file")
	}
	return entries, nil
}

func addWords(ctx context.Context, st *store.Store, entries []wordlist.Entry, w io.Writer) error {
	source := "manual"
	if wordsFile != "" {
		source = "file"
	}
	added := 0
	for _, e := range entries {
		word, created, err := st.AddWord(ctx, e.Word, e.Reading, e.Meaning, source)
		if err != nil {
			logErrf("skipping %q: %v\n", e.Word, err)
			continue
		}
		if !created {
			logErrf("%s is already saved (%s)\n", word.Word, word.ID)
			continue
		}
		added++
		if _, err := fmt.Fprintf(w, "%s  %s  %s\n", word.ID, word.Word, strings.Join(word.Characters, " ")); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if added == 0 {
		return fmt.Errorf("no words added")
	}
	return nil
}

func runWordsListCmd(cmd *cobra.Command, _ []string) error {
	return withStore(func(ctx context.Context, st *store.Store) error {
		words, err := st.ListWords(ctx)
		if err != nil {
			return fmt.Errorf("failed to list words: %w", err)
		}
		return printWords(cmd.OutOrStdout(), words, time.Now())
	})
}

func printWords(w io.Writer, words []model.PracticeWord, now time.Time) error {
	if len(words) == 0 {
		logErrln("No saved words. Add some with: kakite words add 日本語")
		return nil
	}
	for _, word := range words {
		details := strings.TrimSpace(strings.Join([]string{word.Reading, word.Meaning}, "  "))
		added := humanize.RelTime(word.AddedAt, now, "ago", "from now")
		if _, err := fmt.Fprintf(w, "%s  %s  %s  (%s)\n", word.ID, word.Word, details, added); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func runWordsRemoveCmd(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, st *store.Store) error {
		removed, err := st.RemoveWord(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to remove word: %w", err)
		}
		if !removed {
			return fmt.Errorf("no word with id %s", args[0])
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return err
	})
}

func runWordsUpdateCmd(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("reading") && !cmd.Flags().Changed("meaning") {
		return fmt.Errorf("--reading or --meaning is required")
	}
	return withStore(func(ctx context.Context, st *store.Store) error {
		words, err := st.ListWords(ctx)
		if err != nil {
			return fmt.Errorf("failed to list words: %w", err)
		}
		var current *model.PracticeWord
		for i := range words {
			if words[i].ID == args[0] {
				current = &words[i]
				break
			}
		}
		if current == nil {
			return fmt.Errorf("no word with id %s", args[0])
		}
		reading, meaning := current.Reading, current.Meaning
		if cmd.Flags().Changed("reading") {
			reading = wordsReading
		}
		if cmd.Flags().Changed("meaning") {
			meaning = wordsMeaning
		}
		if _, err := st.UpdateWord(ctx, current.ID, reading, meaning); err != nil {
			return fmt.Errorf("failed to update word: %w", err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", current.Word)
		return err
	})
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/kakite/internal/chars"
	"github.com/verte-zerg/kakite/internal/config"
	"github.com/verte-zerg/kakite/internal/model"
	"github.com/verte-zerg/kakite/internal/store"
	"github.com/verte-zerg/kakite/internal/validate"
)

var checkChar string

type strokeSource interface {
	Strokes(ctx context.Context, character string) (model.CharacterStrokes, error)
}

type checkOutput struct {
	Character string `json:"character"`
	validate.BatchResult
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate strokes read as JSON from stdin",
		Long: "Reads the user's strokes as [[{\"x\":0.1,\"y\":0.5},...],...] in [0,1] canvas units\n" +
			"and prints the per-stroke results. Exits with status 1 when the character fails.",
		Args: cobra.NoArgs,
		RunE: runCheckCmd,
	}
	cmd.Flags().StringVar(&checkChar, "char", "", "character the strokes were drawn for")
	_ = cmd.MarkFlagRequired("char")
	return cmd
}

func runCheckCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	cfg := fileCfg.Validation.Apply(validate.DefaultConfig())
	if err := cfg.Check(); err != nil {
		return fmt.Errorf("invalid [validation] config: %w", err)
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

	res, err := checkStrokes(context.Background(), provider, chars.Normalize(checkChar), cfg, os.Stdin, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if !res.OverallSuccess {
		cmd.SilenceErrors = true
		return exitError{code: 1}
	}
	return nil
}

func checkStrokes(ctx context.Context, src strokeSource, character string, cfg validate.Config, in io.Reader, out io.Writer) (validate.BatchResult, error) {
	var user [][]model.Point
	dec := json.NewDecoder(in)
	if err := dec.Decode(&user); err != nil {
		return validate.BatchResult{}, fmt.Errorf("failed to decode strokes: %w", err)
	}
	data, err := src.Strokes(ctx, character)
	if err != nil {
		return validate.BatchResult{}, fmt.Errorf("failed to load strokes: %w", err)
	}
	res := validate.AllStrokes(user, data.Strokes, cfg)
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(checkOutput{Character: data.Character, BatchResult: res}); err != nil {
		return validate.BatchResult{}, fmt.Errorf("failed to write result: %w", err)
	}
	return res, nil
}

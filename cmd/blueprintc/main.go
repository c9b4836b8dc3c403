// Command blueprintc validates scene blueprints and compiles them into render
// payloads without running the server.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"wrapreel/internal/blueprint"
	"wrapreel/internal/render"
	"wrapreel/internal/sceneops"

	"github.com/spf13/cobra"
)

var errInvalid = errors.New("blueprint is not valid")

var (
	audioURL   string
	outPath    string
	strict     bool
	strategy   string
	stratParam sceneops.Params
)

var rootCmd = &cobra.Command{
	Use:           "blueprintc",
	Short:         "Validate and compile scene blueprints",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Report every problem that keeps a blueprint from rendering",
	Long: `Reads a blueprint (.json, .yaml or .yml) and prints its validation
result as JSON. Exits non-zero when the blueprint is not valid.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var compileCmd = &cobra.Command{
	Use:   "compile [file]",
	Short: "Compile a blueprint into a render payload",
	Long: `Compiles a blueprint into the renderer's JSON payload.

Example:
  blueprintc compile reel.yaml --audio https://cdn.example/beat.mp3 --out payload.json`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

var convertCmd = &cobra.Command{
	Use:   "convert [in] [out]",
	Short: "Rewrite a blueprint as JSON or YAML, chosen by the output extension",
	Args:  cobra.ExactArgs(2),
	RunE:  runConvert,
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize [in] [out]",
	Short: "Apply a named scene optimizer or resequencer to a blueprint file",
	Long: `Optimizers: keep_first, drop_shorter_than, cap_length, longest.
Resequencers: reverse, move, fit_duration.`,
	Args: cobra.ExactArgs(2),
	RunE: runOptimize,
}

func init() {
	compileCmd.Flags().StringVar(&audioURL, "audio", "", "background audio URL")
	compileCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the payload to this file instead of stdout")
	compileCmd.Flags().BoolVar(&strict, "strict", false, "refuse to compile a blueprint that does not validate")

	optimizeCmd.Flags().StringVar(&strategy, "strategy", "", "strategy name")
	optimizeCmd.Flags().IntVar(&stratParam.N, "n", 0, "scene count for keep_first and longest")
	optimizeCmd.Flags().Float64Var(&stratParam.Seconds, "seconds", 0, "seconds for drop_shorter_than, cap_length and fit_duration")
	optimizeCmd.Flags().IntVar(&stratParam.From, "from", 0, "source index for move")
	optimizeCmd.Flags().IntVar(&stratParam.To, "to", 0, "target index for move")
	_ = optimizeCmd.MarkFlagRequired("strategy")

	rootCmd.AddCommand(validateCmd, compileCmd, convertCmd, optimizeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "blueprintc:", err)
		os.Exit(1)
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	bp, err := blueprint.ReadFile(args[0])
	if err != nil {
		return err
	}
	v := blueprint.Validate(&bp)
	if err := writeJSON(cmd.OutOrStdout(), v); err != nil {
		return err
	}
	if !v.Valid {
		return errInvalid
	}
	return nil
}

func runCompile(cmd *cobra.Command, args []string) error {
	bp, err := blueprint.ReadFile(args[0])
	if err != nil {
		return err
	}
	var payload render.Payload
	if strict {
		if payload, err = render.CompileReady(bp, audioURL); err != nil {
			return err
		}
	} else {
		payload = render.Compile(bp, audioURL)
	}

	if outPath == "" {
		return writeJSON(cmd.OutOrStdout(), payload)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := writeJSON(f, payload); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runConvert(cmd *cobra.Command, args []string) error {
	bp, err := blueprint.ReadFile(args[0])
	if err != nil {
		return err
	}
	return blueprint.WriteFile(args[1], bp)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	bp, err := blueprint.ReadFile(args[0])
	if err != nil {
		return err
	}
	ed := blueprint.NewEditor()
	ed.Replace(bp)

	if t, err := sceneops.OptimizerByName(strategy, stratParam); err == nil {
		ed.OptimizeScenes(t)
	} else if r, rerr := sceneops.ResequencerByName(strategy, stratParam); rerr == nil {
		ed.ResequenceScenes(r)
	} else {
		return err
	}

	out, _ := ed.Current()
	if err := blueprint.WriteFile(args[1], out); err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), ed.Validation())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

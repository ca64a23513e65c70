// Package cli implements plotctl, the offline companion to the server:
//
//	plotctl parse FILE       commands, counts and envelope as JSON or YAML
//	plotctl compile FILE     DXF to motion text
//	plotctl simulate FILE    run playback to completion, optionally to SVG
//	plotctl export FILE      SVG preview or normalized motion text
//
// FILE may be "-" for stdin. DXF input is recognized by extension or
// --format and compiled before use.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/plotsim/plotsim/internal/engine"
	"github.com/plotsim/plotsim/internal/export"
	"github.com/plotsim/plotsim/internal/gcode"
	"github.com/plotsim/plotsim/internal/program"
)

const version = "0.1.0"

type app struct {
	configPath string
	format     string
}

func BuildCLI() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "plotctl",
		Short:         "plotctl: parse, compile and simulate pen-plotter programs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "job file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&a.format, "format", "", "input format: gcode or dxf (default: from extension)")

	rootCmd.AddCommand(a.buildParseCommand())
	rootCmd.AddCommand(a.buildCompileCommand())
	rootCmd.AddCommand(a.buildSimulateCommand())
	rootCmd.AddCommand(a.buildExportCommand())

	return rootCmd
}

func (a *app) buildParseCommand() *cobra.Command {
	var output string
	var withCommands bool

	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a program and report counts and envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := a.setup()
			if err != nil {
				return err
			}
			text, err := a.motionText(cmd, svc, args[0])
			if err != nil {
				return err
			}

			res := svc.Parse(text)
			if !withCommands {
				res.Commands = nil
			}
			return encode(cmd.OutOrStdout(), output, res)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "json", "output encoding: json or yaml")
	cmd.Flags().BoolVar(&withCommands, "commands", false, "include the command list")

	return cmd
}

func (a *app) buildCompileCommand() *cobra.Command {
	var outPath string
	var summary bool

	cmd := &cobra.Command{
		Use:   "compile FILE",
		Short: "Compile DXF entities to motion text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := a.setup()
			if err != nil {
				return err
			}
			src, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			res := svc.Compile(src)
			if err := writeOutput(cmd, outPath, res.GCode); err != nil {
				return err
			}
			if summary {
				return encode(cmd.ErrOrStderr(), "json", res.Summary)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write motion text to file instead of stdout")
	cmd.Flags().BoolVar(&summary, "summary", false, "print the entity summary to stderr")

	return cmd
}

// SimulateResult is printed by the simulate command.
type SimulateResult struct {
	Steps  int               `json:"steps" yaml:"steps"`
	Frame  engine.Frame      `json:"frame" yaml:"frame"`
	Counts gcode.Counts      `json:"counts" yaml:"counts"`
	Trace  []engine.Waypoint `json:"trace,omitempty" yaml:"trace,omitempty"`
}

func (a *app) buildSimulateCommand() *cobra.Command {
	var svgPath string
	var speed float64
	var maxSteps int
	var trace bool

	cmd := &cobra.Command{
		Use:   "simulate FILE",
		Short: "Play a program to completion and report the final frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, svc, err := a.setup()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("speed") {
				job.Playback.Speed = speed
			}
			if cmd.Flags().Changed("steps") {
				job.Playback.MaxSteps = maxSteps
			}
			if err := job.Validate(); err != nil {
				return err
			}

			text, err := a.motionText(cmd, svc, args[0])
			if err != nil {
				return err
			}
			prog := gcode.Parse(text)

			e := engine.NewEngine()
			e.SetSpeed(job.Playback.Speed)
			e.Load(prog)
			steps := e.Run(job.Playback.MaxSteps)

			state := e.State()
			res := SimulateResult{Steps: steps, Frame: e.Frame(), Counts: e.Counts()}
			if trace {
				res.Trace = state.History
			}

			if svgPath != "" {
				svg := export.RenderPlaybackSVG(prog, state, job.Style())
				if err := os.WriteFile(svgPath, []byte(svg), 0o644); err != nil {
					return fmt.Errorf("write svg: %w", err)
				}
			}
			return encode(cmd.OutOrStdout(), "json", res)
		},
	}

	cmd.Flags().StringVar(&svgPath, "svg", "", "write the traced preview to this SVG file")
	cmd.Flags().Float64Var(&speed, "speed", engine.DefaultSpeed, "speed percentage")
	cmd.Flags().IntVar(&maxSteps, "steps", 0, "stop after this many steps (0 = run to completion)")
	cmd.Flags().BoolVar(&trace, "trace", false, "include the waypoint history")

	return cmd
}

func (a *app) buildExportCommand() *cobra.Command {
	var outPath string
	var as string

	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Export an SVG preview or normalized motion text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, svc, err := a.setup()
			if err != nil {
				return err
			}
			text, err := a.motionText(cmd, svc, args[0])
			if err != nil {
				return err
			}
			prog := gcode.Parse(text)

			switch as {
			case "svg":
				return writeOutput(cmd, outPath, export.RenderSVG(prog, job.Style()))
			case "gcode":
				return writeOutput(cmd, outPath, gcode.Format(prog.Commands))
			default:
				return fmt.Errorf("unknown export type %q", as)
			}
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&as, "as", "svg", "export type: svg or gcode")

	return cmd
}

func (a *app) setup() (Job, *program.Service, error) {
	job, err := LoadJob(a.configPath)
	if err != nil {
		return Job{}, nil, err
	}
	// Offline commands never touch storage.
	return job, program.NewService(nil, job.Compiler, nil), nil
}

// motionText reads FILE and compiles it when it is DXF.
func (a *app) motionText(cmd *cobra.Command, svc *program.Service, path string) (string, error) {
	src, err := readInput(cmd, path)
	if err != nil {
		return "", err
	}

	format := a.format
	if format == "" && path != "-" {
		if format, err = program.FormatFromFilename(filepath.Base(path)); err != nil {
			return "", fmt.Errorf("%w (set --format)", err)
		}
	}
	format, err = program.NormalizeFormat(format)
	if err != nil {
		return "", err
	}

	if format == program.FormatDXF {
		return svc.Compile(src).GCode, nil
	}
	return src, nil
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func writeOutput(cmd *cobra.Command, path, content string) error {
	if path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func encode(w io.Writer, encoding string, v any) error {
	switch encoding {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output encoding %q", encoding)
	}
}

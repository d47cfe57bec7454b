// Command raisec works with the raise pipeline from the command line:
// it converts transform configs between YAML and their binary form, runs
// a backend pipeline over a generated module and fuzzes the transforms.
//
// Usage:
//
//	raisec config encode --type remappings remap.yaml > remap.bin
//	raisec config decode --type remappings remap.bin
//	raisec raise --backend hlsl --seed 3
//	raisec fuzz --iterations 500 pipeline/glsl
package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/davecgh/go-spew/spew"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gogpu/raise"
	"github.com/gogpu/raise/codec"
	"github.com/gogpu/raise/fuzz"
	"github.com/gogpu/raise/ir"
	"github.com/gogpu/raise/transform"
)

var version = "0.1.0"

// errFindings is returned by fuzz when any target failed.
var errFindings = errors.New("fuzzing found failures")

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "raisec: %v\n", err)
		return 1
	}
	return 0
}

// cli holds state shared by the subcommands.
type cli struct {
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	verbose bool
}

func (c *cli) logger() *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(c.errOut, &slog.HandlerOptions{Level: level}))
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func (c *cli) readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(c.in)
	}
	return os.ReadFile(args[0])
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	c := &cli{in: in, out: out, errOut: errOut}
	root := &cobra.Command{
		Use:           "raisec",
		Short:         "raisec drives the shader transform pipeline",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log every transform stage")

	root.AddCommand(newConfigCmd(c), newRaiseCmd(c), newFuzzCmd(c), newTargetsCmd(c))
	return root
}

// addByteOrderFlag registers --big-endian on fs.
func addByteOrderFlag(fs *pflag.FlagSet) {
	fs.Bool("big-endian", false, "use big-endian byte order")
}

// byteOrder returns the order selected by --big-endian.
func byteOrder(fs *pflag.FlagSet) codec.ByteOrder {
	if big, _ := fs.GetBool("big-endian"); big {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Convert transform configs between YAML and binary",
	}

	var typ string
	var force bool
	encode := &cobra.Command{
		Use:   "encode --type T [file.yaml]",
		Short: "Encode a YAML config to its binary form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c.readInput(args)
			if err != nil {
				return err
			}
			r, err := parseConfig(typ, data)
			if err != nil {
				return err
			}
			enc, err := codec.Encode(r, byteOrder(cmd.Flags()))
			if err != nil {
				return err
			}
			if isTerminal(c.out) && !force {
				return errors.New("refusing to write binary to a terminal (use --force)")
			}
			_, err = c.out.Write(enc)
			return err
		},
	}
	encode.Flags().StringVarP(&typ, "type", "t", "", "config type")
	encode.Flags().BoolVarP(&force, "force", "f", false, "write binary to a terminal")
	addByteOrderFlag(encode.Flags())
	_ = encode.MarkFlagRequired("type")

	var dump bool
	decode := &cobra.Command{
		Use:   "decode --type T [file.bin]",
		Short: "Decode a binary config and print it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := lookupConfigType(typ)
			if err != nil {
				return err
			}
			data, err := c.readInput(args)
			if err != nil {
				return err
			}
			r := ct.empty()
			if err := codec.Decode(data, r, byteOrder(cmd.Flags())); err != nil {
				return err
			}
			if dump {
				spew.Fdump(c.out, r)
				return nil
			}
			_, err = fmt.Fprintln(c.out, codec.Describe(r))
			return err
		},
	}
	decode.Flags().StringVarP(&typ, "type", "t", "", "config type")
	decode.Flags().BoolVar(&dump, "dump", false, "print the Go value instead of the field summary")
	addByteOrderFlag(decode.Flags())
	_ = decode.MarkFlagRequired("type")

	types := &cobra.Command{
		Use:   "types",
		Short: "List config types",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range configTypeNames() {
				fmt.Fprintln(c.out, name)
			}
		},
	}

	cmd.AddCommand(encode, decode, types)
	return cmd
}

func newRaiseCmd(c *cli) *cobra.Command {
	var (
		backendName string
		seed        int64
		results     bool
	)
	cmd := &cobra.Command{
		Use:   "raise --backend B [--seed N]",
		Short: "Run a backend pipeline over a generated module and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := raise.ParseBackend(backendName)
			if err != nil {
				return err
			}
			m := fuzz.NewGenerator(seed).Module()
			out, data, err := raise.Raise(m, backend, raise.DefaultOptions(), transform.WithLogger(c.logger()))
			if err != nil {
				return err
			}
			fmt.Fprint(c.out, ir.Disassemble(out))
			if results && data != nil && data.Len() > 0 {
				fmt.Fprintln(c.out, data.Dump())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&backendName, "backend", "b", raise.BackendSPIRV.String(), "target backend (spirv, glsl, hlsl, msl)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed of the generated module")
	cmd.Flags().BoolVar(&results, "results", false, "print the transform results")
	return cmd
}

func newFuzzCmd(c *cli) *cobra.Command {
	r := &fuzz.Runner{}
	cmd := &cobra.Command{
		Use:   "fuzz [target...]",
		Short: "Fuzz transforms and pipelines with generated modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			r.Registry = fuzz.DefaultRegistry()
			r.Logger = c.logger()
			findings, err := r.Run(cmd.Context(), args...)
			for _, f := range findings {
				fmt.Fprintln(c.out, f)
			}
			if err != nil {
				return err
			}
			if len(findings) > 0 {
				return fmt.Errorf("%w: %d", errFindings, len(findings))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&r.Workers, "workers", "j", fuzz.DefaultWorkers(), "number of workers")
	cmd.Flags().IntVarP(&r.Iterations, "iterations", "n", 100, "iterations per target")
	cmd.Flags().Int64Var(&r.Seed, "seed", 0, "seed of the first iteration")
	return cmd
}

func newTargetsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List fuzz targets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range fuzz.DefaultRegistry().Names() {
				fmt.Fprintln(c.out, name)
			}
		},
	}
}

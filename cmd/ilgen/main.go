// ilgen CLI - builds the sample module into an image, disassembles images
// and runs their routines.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/tliron/commonlog"

	"github.com/chazu/ilgen/assembly"
	"github.com/chazu/ilgen/emit"
	"github.com/chazu/ilgen/manifest"
	"github.com/chazu/ilgen/pkg/bytecode"
	"github.com/chazu/ilgen/vm"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("ilgen.cli")

var errUsage = errors.New("usage")

func main() {
	verbosity := flag.Int("v", -1, "Log verbosity (overrides [log] verbosity in ilgen.toml)")
	dir := flag.String("C", ".", "Directory to search for ilgen.toml")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ilgen [options] <command> [args...]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  build [-o image] [-debug]        Build the sample module into an image\n")
		fmt.Fprintf(os.Stderr, "  dis [-image path] [token...]     Disassemble routines of an image\n")
		fmt.Fprintf(os.Stderr, "  list [-image path]               List routine tokens of an image\n")
		fmt.Fprintf(os.Stderr, "  run [-image path] <token> [args] Run a routine\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  ilgen build\n")
		fmt.Fprintf(os.Stderr, "  ilgen dis 'Demo::Gcd(int32,int32)'\n")
		fmt.Fprintf(os.Stderr, "  ilgen run Demo::Fib 10\n")
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	m, err := loadManifest(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading manifest: %v\n", err)
		os.Exit(1)
	}
	configureLogging(m, *verbosity)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = dispatch(ctx, os.Stdout, m, args)
	if errors.Is(err, errUsage) {
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadManifest(dir string) (*manifest.Manifest, error) {
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(dir), nil
	}
	return m, nil
}

func configureLogging(m *manifest.Manifest, verbosity int) {
	if verbosity < 0 {
		verbosity = m.Log.Verbosity
	}
	if path := m.LogPath(); path != "" {
		commonlog.Configure(verbosity, &path)
	} else {
		commonlog.Configure(verbosity, nil)
	}
}

func dispatch(ctx context.Context, w io.Writer, m *manifest.Manifest, args []string) error {
	switch args[0] {
	case "build":
		return handleBuildCommand(w, m, args[1:])
	case "dis":
		return handleDisCommand(w, m, args[1:])
	case "list":
		return handleListCommand(w, m, args[1:])
	case "run":
		return handleRunCommand(ctx, w, m, args[1:])
	}
	fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
	return errUsage
}

// handleBuildCommand processes the `ilgen build` subcommand.
func handleBuildCommand(w io.Writer, m *manifest.Manifest, args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	out := fs.String("o", m.ImagePath(), "Output image path")
	debug := fs.Bool("debug", false, "Keep local variable names in routine bodies")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var opts []emit.Option
	if *debug {
		opts = append(opts, emit.WithDebugInfo())
	}
	if m.VM.Trace {
		opts = append(opts, emit.WithTrace())
	}
	img, err := buildSamples(m.Project.Name, opts...)
	if err != nil {
		return err
	}
	data, err := assembly.MarshalImage(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0644); err != nil {
		return fmt.Errorf("cannot write %s: %w", *out, err)
	}
	log.Infof("wrote %s (%d bytes)", *out, len(data))
	fmt.Fprintf(w, "Built %s: %d routines, %d bytes, module %s\n", *out, len(img.RoutineTokens()), len(data), img.ID)
	return nil
}

func readImage(path string) (*assembly.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	img, err := assembly.UnmarshalImage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := img.Link(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// imageFlags parses the -image flag shared by dis, list and run.
func imageFlags(name string, m *manifest.Manifest, args []string) (*assembly.Image, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("image", m.ImagePath(), "Image path")
	if err := fs.Parse(args); err != nil {
		return nil, nil, errUsage
	}
	img, err := readImage(*path)
	if err != nil {
		return nil, nil, err
	}
	return img, fs.Args(), nil
}

// handleDisCommand prints the disassembly of the named routines, or of
// every routine when none is named.
func handleDisCommand(w io.Writer, m *manifest.Manifest, args []string) error {
	img, tokens, err := imageFlags("dis", m, args)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		tokens = img.RoutineTokens()
	}
	for _, tok := range tokens {
		r, err := img.Routine(tok)
		if err != nil {
			return err
		}
		fmt.Fprint(w, r.Body.DisassembleWithName(r.Name))
	}
	return nil
}

func handleListCommand(w io.Writer, m *manifest.Manifest, args []string) error {
	img, _, err := imageFlags("list", m, args)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s (%s)\n", img.Name, img.ID)
	for _, tok := range img.RoutineTokens() {
		fmt.Fprintf(w, "  %s\n", tok)
	}
	return nil
}

// handleRunCommand invokes a routine with arguments parsed according to
// its parameter types and prints the result.
func handleRunCommand(ctx context.Context, w io.Writer, m *manifest.Manifest, args []string) error {
	img, rest, err := imageFlags("run", m, args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return errUsage
	}
	r, err := img.Routine(rest[0])
	if err != nil {
		return err
	}
	if r.Body.IsInstance() {
		return fmt.Errorf("%s is an instance routine", r.Name)
	}
	params := r.Body.ParamTypes
	if len(rest)-1 != len(params) {
		return fmt.Errorf("%s takes %d arguments, got %d", r.Name, len(params), len(rest)-1)
	}
	vals := make([]vm.Value, len(params))
	for k, t := range params {
		v, err := parseArg(t, rest[k+1])
		if err != nil {
			return fmt.Errorf("argument %d: %w", k+1, err)
		}
		vals[k] = v
	}

	in := vm.New(img, vm.WithMaxSteps(m.VM.MaxSteps), vm.WithTrace(m.VM.Trace))
	result, err := in.Invoke(ctx, r.Name, vals...)
	if err != nil {
		return err
	}
	log.Debugf("%s finished in %d steps", r.Name, in.Steps())
	if !r.Body.ReturnType.IsVoid() {
		fmt.Fprintln(w, result)
	}
	return nil
}

var intBits = map[bytecode.Type]int{
	bytecode.TypeInt8: 8, bytecode.TypeUint8: 8,
	bytecode.TypeInt16: 16, bytecode.TypeUint16: 16,
	bytecode.TypeInt32: 32, bytecode.TypeUint32: 32,
}

// parseArg converts a command-line argument to a value of type t.
func parseArg(t bytecode.Type, s string) (vm.Value, error) {
	switch t {
	case bytecode.TypeBool:
		b, err := strconv.ParseBool(s)
		return vm.Bool(b), err
	case bytecode.TypeInt8, bytecode.TypeInt16, bytecode.TypeInt32:
		n, err := strconv.ParseInt(s, 0, intBits[t])
		return vm.Int32(int32(n)), err
	case bytecode.TypeUint8, bytecode.TypeUint16, bytecode.TypeUint32:
		n, err := strconv.ParseUint(s, 0, intBits[t])
		return vm.Uint32(uint32(n)), err
	case bytecode.TypeInt64:
		n, err := strconv.ParseInt(s, 0, 64)
		return vm.Int64(n), err
	case bytecode.TypeUint64:
		n, err := strconv.ParseUint(s, 0, 64)
		return vm.Uint64(n), err
	case bytecode.TypeFloat32:
		f, err := strconv.ParseFloat(s, 32)
		return vm.Float32(float32(f)), err
	case bytecode.TypeFloat64:
		f, err := strconv.ParseFloat(s, 64)
		return vm.Float64(f), err
	case bytecode.TypeString:
		return vm.String(s), nil
	}
	return vm.Null, fmt.Errorf("cannot pass %s on the command line", t)
}

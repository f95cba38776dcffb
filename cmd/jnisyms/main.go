// Command jnisyms prints the JNI symbol table of the bindings: the exported
// native symbol and descriptor of every NativeBindings method and the
// callback method descriptors the bridge invokes.
//
// Usage:
//
//	jnisyms [--package=net.maidsafe] [--config=safejni.yaml] [--format=text|yaml] [--long]
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"

	"github.com/opd-ai/safejni/bridge"
	"github.com/opd-ai/safejni/config"
	"github.com/opd-ai/safejni/jni"
)

// Options are the command line options.
type Options struct {
	Package string `short:"p" long:"package" description:"Managed class package, e.g. net.maidsafe"`
	Config  string `short:"c" long:"config" description:"Bridge configuration file (YAML)"`
	Format  string `short:"f" long:"format" choice:"text" choice:"yaml" default:"text" description:"Output format"`
	Long    bool   `short:"l" long:"long" description:"Print the overloaded (long) symbol form"`
}

// Table is the printed symbol table.
type Table struct {
	Package   string            `yaml:"package"`
	Natives   []bridge.Symbol   `yaml:"natives"`
	Callbacks []bridge.Callback `yaml:"callbacks"`
}

func loadConfig(opts Options) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		if cfg, err = config.Load(opts.Config); err != nil {
			return config.Config{}, err
		}
	}
	if opts.Package != "" {
		cfg.ClassPackage = opts.Package
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func buildTable(cfg config.Config, long bool) Table {
	b := bridge.New(nil, nil, nil, cfg)
	t := Table{Package: cfg.ClassPackage, Natives: b.Symbols(), Callbacks: b.Callbacks()}
	if long {
		for i, s := range t.Natives {
			t.Natives[i].Export = jni.MangleOverloadedSymbol(cfg.ClassPackage+bridge.BindingsClass, s.Method, s.Sign)
		}
	}
	return t
}

func writeText(w io.Writer, t Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tDESCRIPTOR\tSYMBOL")
	for _, s := range t.Natives {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Method, s.Sign, s.Export)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "CALLBACK\tMETHOD\tDESCRIPTOR")
	for _, c := range t.Callbacks {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Class, c.Method, c.Sign)
	}
	return tw.Flush()
}

func run(args []string, stdout io.Writer) error {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	t := buildTable(cfg, opts.Long)
	if opts.Format == "yaml" {
		enc := yaml.NewEncoder(stdout)
		defer enc.Close()
		return enc.Encode(t)
	}
	return writeText(stdout, t)
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		fmt.Fprintln(os.Stderr, "jnisyms: "+err.Error())
		os.Exit(1)
	}
}

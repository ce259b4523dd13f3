package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/foreign-abi/abi"
	"github.com/wippyai/foreign-abi/linker"
)

func main() {
	var (
		convName     = flag.String("conv", "", "Calling convention (default: host)")
		sig          = flag.String("sig", "", "C prototype, e.g. 'int32(address, ..., int32, float64)'")
		capture      = flag.String("capture", "", "Call states to capture (comma-separated, e.g. errno)")
		upcall       = flag.Bool("upcall", false, "Plan an upcall instead of a downcall")
		wasm         = flag.Bool("wasm", false, "Also print the wasm32 lowering of -sig")
		list         = flag.Bool("list", false, "List calling conventions and exit")
		encode       = flag.Bool("encode", false, "Hex dump the binary descriptor of -conv")
		verbose      = flag.Bool("v", false, "Log descriptor bootstrap and planning")
		interactive  = flag.Bool("i", false, "Interactive mode with TUI")
		manifestPath = flag.String("manifest", "", "Plan every call listed in a TOML manifest")
		format       = flag.String("format", "text", "Plan output format: text or yaml")
	)
	flag.Parse()

	if *verbose {
		log, err := zap.NewDevelopment()
		if err == nil {
			abi.SetLogger(log)
			linker.SetLogger(log)
			defer func() { _ = log.Sync() }()
		}
	}

	st := newStyles(term.IsTerminal(int(os.Stdout.Fd())))
	if *list {
		for _, c := range abi.Conventions() {
			fmt.Println(renderDescriptor(st, c))
		}
		return
	}

	if *format != "text" && *format != "yaml" {
		fail(fmt.Errorf("unknown format %q", *format))
	}

	conv, err := resolveConvention(*convName)
	if err != nil {
		fail(err)
	}

	switch {
	case *interactive:
		err = runInteractive(conv, *sig)
	case *manifestPath != "":
		err = runManifest(st, conv, *manifestPath, *format)
	case *encode:
		var data []byte
		if data, err = conv.Descriptor().MarshalBinary(); err == nil {
			writeHex(os.Stdout, data)
		}
	case *sig != "":
		err = run(st, conv, *sig, *capture, *upcall, *wasm, *format)
	default:
		fmt.Print(renderDescriptor(st, conv))
		fmt.Fprintln(os.Stderr, "\nUsage: abidump [-conv name] -sig 'int32(address, ..., int32)' [-capture errno] [-upcall] [-wasm]")
		fmt.Fprintln(os.Stderr, "       abidump -manifest calls.toml [-format yaml]")
		fmt.Fprintln(os.Stderr, "       abidump -list | -encode [-conv name]")
		fmt.Fprintln(os.Stderr, "       abidump -i  (interactive mode)")
	}
	if err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func resolveConvention(name string) (abi.Convention, error) {
	if name == "" {
		return abi.Host()
	}
	return abi.ParseConvention(name)
}

func run(st styles, conv abi.Convention, src, capture string, upcall, wasm bool, format string) error {
	l, err := linker.NewWithDefaults(conv)
	if err != nil {
		return err
	}
	plan, err := planSignature(l, src, capture, upcall)
	if err != nil {
		return err
	}
	if format == "yaml" {
		return writeYAML(os.Stdout, newPlanReport("", plan, upcall))
	}
	fmt.Print(renderPlan(st, plan))

	if wasm {
		params, results, err := l.WasmSignature(plan.Descriptor)
		if err != nil {
			return err
		}
		fmt.Print(renderWasm(st, params, results))
	}
	return nil
}

func runManifest(st styles, fallback abi.Convention, path, format string) error {
	m, err := loadManifest(path)
	if err != nil {
		return err
	}
	planned, err := m.plan(fallback)
	if err != nil {
		return err
	}
	if format == "yaml" {
		return writeYAML(os.Stdout, reports(planned))
	}
	for _, p := range planned {
		fmt.Println(st.label.Render("# " + p.name))
		fmt.Println(renderPlan(st, p.plan))
	}
	return nil
}

func planSignature(l *linker.Linker, src, capture string, upcall bool) (*linker.CallPlan, error) {
	sig, err := parseSignature(src)
	if err != nil {
		return nil, err
	}
	opts := sig.options()
	if capture != "" {
		names := strings.Split(capture, ",")
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
		opt, err := l.CaptureCallState(names...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}
	if upcall {
		return l.Upcall(sig.desc, opts...)
	}
	return l.Downcall(sig.desc, opts...)
}

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/foreign-abi/abi"
	"github.com/wippyai/foreign-abi/linker"
)

// manifest lists call sites to plan in one run.
//
//	convention = "sysv-x86_64"
//
//	[[call]]
//	name      = "printf"
//	signature = "int32(address, ..., int32, float64)"
//	capture   = ["errno"]
type manifest struct {
	Convention string         `toml:"convention"`
	Calls      []manifestCall `toml:"call"`
}

type manifestCall struct {
	Name       string   `toml:"name"`
	Signature  string   `toml:"signature"`
	Convention string   `toml:"convention"`
	Capture    []string `toml:"capture"`
	Upcall     bool     `toml:"upcall"`
}

func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := decodeManifest(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return m, nil
}

func decodeManifest(src string) (*manifest, error) {
	var m manifest
	meta, err := toml.Decode(src, &m)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	return &m, nil
}

// plan resolves every call against its convention. fallback is used when
// neither the call nor the manifest names one.
func (m *manifest) plan(fallback abi.Convention) ([]plannedCall, error) {
	linkers := make(map[abi.Convention]*linker.Linker)
	planned := make([]plannedCall, 0, len(m.Calls))

	for i, call := range m.Calls {
		name := call.Name
		if name == "" {
			name = fmt.Sprintf("call%d", i)
		}

		conv := fallback
		for _, n := range []string{call.Convention, m.Convention} {
			if n == "" {
				continue
			}
			c, err := abi.ParseConvention(n)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			conv = c
			break
		}

		l, ok := linkers[conv]
		if !ok {
			var err error
			if l, err = linker.NewWithDefaults(conv); err != nil {
				return nil, err
			}
			linkers[conv] = l
		}

		plan, err := planSignature(l, call.Signature, strings.Join(call.Capture, ","), call.Upcall)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		planned = append(planned, plannedCall{name: name, plan: plan, upcall: call.Upcall})
	}
	return planned, nil
}

type plannedCall struct {
	plan   *linker.CallPlan
	name   string
	upcall bool
}

func reports(planned []plannedCall) []planReport {
	out := make([]planReport, len(planned))
	for i, p := range planned {
		out[i] = newPlanReport(p.name, p.plan, p.upcall)
	}
	return out
}

type planReport struct {
	Name            string          `yaml:"name,omitempty"`
	Convention      string          `yaml:"convention"`
	Direction       string          `yaml:"direction"`
	Descriptor      string          `yaml:"descriptor"`
	Options         string          `yaml:"options"`
	Args            []bindingReport `yaml:"args"`
	Return          *bindingReport  `yaml:"return,omitempty"`
	ReturnsInMemory bool            `yaml:"returns_in_memory,omitempty"`
	StackSize       int64           `yaml:"stack_size"`
	Target          string          `yaml:"target,omitempty"`
	CapturedState   string          `yaml:"captured_state,omitempty"`
	VectorCount     string          `yaml:"vector_count,omitempty"`
}

type bindingReport struct {
	Layout   string `yaml:"layout"`
	Storage  string `yaml:"storage"`
	Shadow   string `yaml:"shadow,omitempty"`
	Upper    string `yaml:"upper,omitempty"`
	Variadic bool   `yaml:"variadic,omitempty"`
}

func newPlanReport(name string, plan *linker.CallPlan, upcall bool) planReport {
	r := planReport{
		Name:            name,
		Convention:      plan.Convention.String(),
		Direction:       "downcall",
		Descriptor:      plan.Descriptor.String(),
		Options:         plan.Options.String(),
		ReturnsInMemory: plan.ReturnsInMemory,
		StackSize:       plan.StackSize,
	}
	if upcall {
		r.Direction = "upcall"
	} else {
		r.Target = plan.TargetBinding.String()
	}

	for i, b := range plan.ArgBindings {
		br := newBindingReport(b)
		br.Variadic = plan.Options.IsVarargsIndex(i)
		r.Args = append(r.Args, br)
	}
	if plan.HasReturn {
		br := newBindingReport(plan.ReturnBinding)
		r.Return = &br
	}
	if plan.Options.HasCapturedCallState() {
		r.CapturedState = plan.CapturedStateBinding.String()
	}
	if !plan.VectorCountBinding.IsZero() {
		r.VectorCount = fmt.Sprintf("%d in %s", plan.VectorCount, plan.VectorCountBinding)
	}
	return r
}

func newBindingReport(b linker.Binding) bindingReport {
	br := bindingReport{
		Layout:  b.Layout.String(),
		Storage: b.Storage.String(),
	}
	if !b.Shadow.IsZero() {
		br.Shadow = b.Shadow.String()
	}
	if !b.Upper.IsZero() {
		br.Upper = b.Upper.String()
	}
	return br
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

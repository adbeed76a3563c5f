package source

import (
	"fmt"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"
)

// CompileFilter compiles a tcpdump expression for frames starting at link.
func CompileFilter(link layers.LinkType, snapLen int, expr string) ([]bpf.RawInstruction, error) {
	pcapBpf, err := pcap.CompileBPFFilter(link, snapLen, expr)
	if err != nil {
		return nil, fmt.Errorf("failed to compile BPF filter: %w", err)
	}

	rawBpf := make([]bpf.RawInstruction, len(pcapBpf))
	for i, ins := range pcapBpf {
		rawBpf[i] = bpf.RawInstruction{Op: ins.Code, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	return rawBpf, nil
}

// Filter runs a BPF program in user space. It is used for offline sources;
// live sources attach the program to the socket instead.
type Filter struct {
	expr string
	vm   *bpf.VM
}

// NewFilter loads a compiled program.
func NewFilter(expr string, raw []bpf.RawInstruction) (*Filter, error) {
	insns := make([]bpf.Instruction, len(raw))
	for i, r := range raw {
		insns[i] = r.Disassemble()
	}
	vm, err := bpf.NewVM(insns)
	if err != nil {
		return nil, fmt.Errorf("invalid BPF program for %q: %w", expr, err)
	}
	return &Filter{expr: expr, vm: vm}, nil
}

// NewFilterExpr compiles expr and loads it.
func NewFilterExpr(link layers.LinkType, snapLen int, expr string) (*Filter, error) {
	raw, err := CompileFilter(link, snapLen, expr)
	if err != nil {
		return nil, err
	}
	return NewFilter(expr, raw)
}

// Match reports whether the program accepts data. A nil Filter accepts everything.
func (f *Filter) Match(data []byte) bool {
	if f == nil {
		return true
	}
	n, err := f.vm.Run(data)
	return err == nil && n > 0
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

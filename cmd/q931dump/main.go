// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// q931dump decodes Q.931 frames given as hex strings (arguments or one
// frame per stdin line) and prints the message and its information
// elements.
package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/intuitivelabs/q931"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

func main() {
	var cfgFile = pflag.StringP("config", "c", "", "YAML config file (interface settings)")
	var intfName = pflag.StringP("intf", "i", "", "interface name in the config file (default: first)")
	var role = pflag.StringP("role", "r", "te", "receiving side role: te or nt")
	var itype = pflag.StringP("type", "t", "bra", "interface type: bra or pra")
	var raw = pflag.BoolP("raw", "R", false, "print the raw information elements too")
	var help = pflag.BoolP("help", "h", false, "display help text")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [options] [hex-frame...]\n",
			os.Args[0])
		fmt.Fprintf(os.Stderr, "  without frames, reads one hex frame per line from stdin\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	ic, err := intfConfig(*cfgFile, *intfName, *role, *itype)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
	ctx := q931.IECtx{IntfType: ic.Type, Dir: q931.DirNtoU}
	if ic.Role == q931.RoleNT {
		ctx.Dir = q931.DirUtoN
	}

	errs := 0
	if pflag.NArg() > 0 {
		for _, a := range pflag.Args() {
			if !dump(&ctx, a, *raw) {
				errs++
			}
		}
	} else {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			l := strings.TrimSpace(sc.Text())
			if l == "" || l[0] == '#' {
				continue
			}
			if !dump(&ctx, l, *raw) {
				errs++
			}
		}
		if err := sc.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "error reading stdin: %s\n", err)
			errs++
		}
	}
	if errs != 0 {
		os.Exit(1)
	}
}

// intfConfig returns the interface settings from the config file or the
// command line flags.
func intfConfig(file, name, role, itype string) (*q931.IntfConfig, error) {
	if file != "" {
		cfg, err := q931.LoadConfig(file)
		if err != nil {
			return nil, err
		}
		for i := range cfg.Interfaces {
			if name == "" || cfg.Interfaces[i].Name == name {
				return &cfg.Interfaces[i], nil
			}
		}
		return nil, errors.Errorf("interface %q not found in %s", name, file)
	}
	y := fmt.Sprintf("interfaces:\n- name: cli\n  role: %s\n  type: %s\n",
		role, itype)
	cfg, err := q931.ParseConfig([]byte(y))
	if err != nil {
		return nil, err
	}
	return &cfg.Interfaces[0], nil
}

// hex frames may contain spaces or colons between the octets
func parseHex(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == ':' || r == '\t' {
			return -1
		}
		return r
	}, s)
	return hex.DecodeString(s)
}

func dump(ctx *q931.IECtx, s string, raw bool) bool {
	b, err := parseHex(s)
	if err != nil {
		fmt.Printf("%s: bad hex: %s\n", s, err)
		return false
	}
	m, perr := q931.ParseMessage(ctx, b)
	if perr != q931.ErrMsgOk {
		fmt.Printf("%s: %s\n", s, perr)
		return false
	}
	if m.UnknownMsg {
		fmt.Printf("unknown message 0x%02x cr %s\n", uint8(m.Type), m.CallRef)
	} else {
		fmt.Printf("%s cr %s (%d octets)\n", m.Type, m.CallRef, len(b))
	}
	for i := 0; i < m.IEs.Len(); i++ {
		ie := m.IEs.At(i)
		fmt.Printf("    %-28s %+v\n", ie.ID(), ie)
	}
	for _, e := range m.IEErrs {
		fmt.Printf("    ! %s: %s (%s)\n", e.ID, e.Kind, e.Err)
	}
	if raw {
		for _, r := range m.RawIEs {
			fmt.Printf("    raw cs %d %s: % x\n", r.Codeset, r.ID,
				r.Val.Get(b))
		}
	}
	return len(m.IEErrs) == 0
}

// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"sigs.k8s.io/yaml"

	"github.com/SnellerInc/flexic/flexbuf"
	"github.com/SnellerInc/flexic/fspan"
)

// config is the optional -config file. Its one setting, Pretty, is
// parsed but does not change the output.
type config struct {
	Pretty bool `json:"pretty"`
}

func loadConfig(path string) (config, error) {
	var c config
	if path == "" {
		return c, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(buf, &c); err != nil {
		return c, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return c, nil
}

func main() {
	trace := flag.Bool("trace", false, "stamp a request id on stderr diagnostics")
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	_ = cfg // cfg.Pretty is not used by the JSON output

	var traceID string
	if *trace {
		traceID = uuid.New().String()
		fmt.Fprintf(os.Stderr, "flexdump[%s]: starting\n", traceID)
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: flexdump [-trace] [-config file] file...")
		os.Exit(2)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	for _, path := range args {
		if err := dumpOne(out, path, traceID); err != nil {
			fmt.Fprintf(os.Stderr, "flexdump: %s: %s\n", path, err)
			os.Exit(1)
		}
	}
}

func dumpOne(out *bufio.Writer, path, traceID string) error {
	f, err := fspan.OpenFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	c, err := flexbuf.Open(f.Span)
	if err != nil {
		return err
	}
	if traceID != "" {
		fmt.Fprintf(os.Stderr, "flexdump[%s]: opened %s (%d bytes)\n", traceID, path, f.Len())
	}
	if err := flexbuf.WriteJSON(out, c); err != nil {
		return err
	}
	return out.WriteByte('\n')
}

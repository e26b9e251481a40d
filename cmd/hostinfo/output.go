package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/opd-ai/hostinfo/internal/config"
	"github.com/opd-ai/hostinfo/pkg/hostinfo"
)

const unknownText = "unknown"

func writeReport(w io.Writer, format string, r hostinfo.Report) error {
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case config.FormatText:
		return writeText(w, r)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func writeText(w io.Writer, r hostinfo.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(label, value string) {
		fmt.Fprintf(tw, "%s:\t%s\n", label, value)
	}

	platform := r.OS
	if r.Arch != "" {
		platform += "/" + r.Arch
	}
	row("Host", fmt.Sprintf("%s (%s)", r.Hostname, platform))
	row("CPU", orUnknown(r.Brand))
	if r.Vendor != "" {
		row("Vendor", fmt.Sprintf("%s family %d model %d", r.Vendor, r.Family, r.Model))
	}
	row("Logical cores", count(r.LogicalCores))
	row("Physical cores", count(r.PhysicalCores))
	row("Performance cores", count(r.PerformanceCores))
	row("Total RAM", bytesText(r.TotalRAMBytes))
	row("Free RAM", bytesText(r.FreeRAMBytes))
	if len(r.Features) > 0 {
		row("Features", strings.Join(r.Features, " "))
	}
	row("Clock", strconv.FormatFloat(r.Clock, 'f', 6, 64)+" s")
	return tw.Flush()
}

func orUnknown(s string) string {
	if s == "" {
		return unknownText
	}
	return s
}

func count(n int) string {
	if n == hostinfo.Unknown {
		return unknownText
	}
	return strconv.Itoa(n)
}

func bytesText(n int64) string {
	if n == hostinfo.UnknownBytes {
		return unknownText
	}
	return humanize.IBytes(uint64(n))
}

package main

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/maauso/mediakit/internal/loudness"
	"github.com/maauso/mediakit/internal/media"
	"github.com/maauso/mediakit/internal/task"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// printTaskResult lists every output of t with its size on disk.
func printTaskResult(out io.Writer, t *task.Task) {
	var rows [][]string
	for _, res := range t.Results() {
		status := "ok"
		if res.Err != nil {
			status = res.Err.Error()
		}
		for _, p := range res.Outputs {
			rows = append(rows, []string{p, fileSize(p), status})
		}
	}
	fmt.Fprintf(out, "%s %s\n", t.ID(), t.Outcome())
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Output", "Size", "Status"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
	}
	for _, u := range t.URLs() {
		fmt.Fprintf(out, "published: %s\n", u)
	}
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "-"
	}
	return humanize.Bytes(uint64(info.Size()))
}

func printLoudness(out io.Writer, paths []string, stats []loudness.Stats) {
	rows := make([][]string, len(paths))
	for i, p := range paths {
		rows[i] = []string{p, formatDecibel(stats[i].Decibel), formatDecibel(stats[i].DecibelMedian)}
	}
	fmt.Fprintln(out, renderTable([]string{"File", "Decibel", "Median"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
}

func formatDecibel(v float64) string {
	if math.IsInf(v, -1) {
		return "silent"
	}
	return fmt.Sprintf("%.2f dBFS", v)
}

func printInfo(out io.Writer, info *media.Info) {
	fmt.Fprintf(out, "File:     %s\n", info.Path)
	fmt.Fprintf(out, "Format:   %s\n", info.FormatName)
	fmt.Fprintf(out, "Duration: %.3fs\n", info.Duration)
	fmt.Fprintf(out, "Size:     %s\n", humanize.Bytes(uint64(max(info.Size, 0))))
	if info.BitRate > 0 {
		fmt.Fprintf(out, "Bitrate:  %s/s\n", humanize.SI(float64(info.BitRate), "b"))
	}

	rows := make([][]string, 0, len(info.Streams))
	for _, s := range info.Streams {
		detail := ""
		switch s.CodecType {
		case "video":
			detail = fmt.Sprintf("%dx%d", s.Width, s.Height)
		case "audio":
			detail = fmt.Sprintf("%s Hz, %d ch", humanize.Comma(int64(s.SampleRate)), s.Channels)
		}
		rows = append(rows, []string{fmt.Sprint(s.Index), s.CodecType, s.CodecName, detail})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"#", "Type", "Codec", "Detail"}, rows, []columnAlignment{alignRight}))
	}
}

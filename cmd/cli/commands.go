package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hamed0406/wanuptime/internal/client"
	"github.com/hamed0406/wanuptime/internal/domain"
)

var uptimeCmd = &cobra.Command{
	Use:   "uptime",
	Short: "Show uptime and outages for a window",
	RunE:  runUptime,
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List raw probe records for a window",
	RunE:  runRecords,
}

var disruptionsCmd = &cobra.Command{
	Use:   "disruptions",
	Short: "List disruptions detected from rolling uptime",
	RunE:  runDisruptions,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the uptime report as csv, xlsx, svg or png",
	RunE:  runExport,
}

func runUptime(cmd *cobra.Command, args []string) error {
	res, err := apiClient(cmd).Uptime(cmd.Context(), window(cmd))
	if err != nil {
		return err
	}
	printUptime(cmd.OutOrStdout(), res, time.Now())
	return nil
}

func runRecords(cmd *cobra.Command, args []string) error {
	res, err := apiClient(cmd).Records(cmd.Context(), window(cmd))
	if err != nil {
		return err
	}
	onlyFailures, _ := cmd.Flags().GetBool("failures")

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSTATUS\tDETAIL")
	for _, r := range res.Records {
		if onlyFailures && r.Success {
			continue
		}
		status, detail := "up", ""
		if r.Success && r.Latency != nil {
			detail = r.Latency.Round(10 * time.Microsecond).String()
		}
		if !r.Success {
			status, detail = "down", r.FailureReason
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Timestamp.Local().Format(time.DateTime), status, detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s records\n", humanize.Comma(int64(len(res.Records))))
	return nil
}

func runDisruptions(cmd *cobra.Command, args []string) error {
	res, err := apiClient(cmd).Disruptions(cmd.Context(), window(cmd))
	if err != nil {
		return err
	}
	printDisruptions(cmd.OutOrStdout(), res.Disruptions, time.Now())
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = "uptime." + format
	}
	q := window(cmd)
	q.Set("format", format)

	if out == "-" {
		if format != "csv" && (isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())) {
			return fmt.Errorf("refusing to write %s to a terminal; use -o <file>", format)
		}
		err := apiClient(cmd).Download(cmd.Context(), q, cmd.OutOrStdout())
		if errors.Is(err, client.ErrNoContent) {
			fmt.Fprintln(cmd.ErrOrStderr(), "No data in the requested window.")
			return nil
		}
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	err = apiClient(cmd).Download(cmd.Context(), q, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if errors.Is(err, client.ErrNoContent) {
		_ = os.Remove(out)
		fmt.Fprintln(cmd.OutOrStdout(), "No data in the requested window.")
		return nil
	}
	if err != nil {
		_ = os.Remove(out)
		return err
	}
	if st, err := os.Stat(out); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", out, humanize.Bytes(uint64(st.Size())))
	}
	return nil
}

// window collects the query flags that are set on cmd.
func window(cmd *cobra.Command) url.Values {
	q := url.Values{}
	for _, name := range []string{"start", "end", "bucket"} {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			q.Set(name, f.Value.String())
		}
	}
	return q
}

func printUptime(w io.Writer, res client.Uptime, now time.Time) {
	fmt.Fprintf(w, "Window: %s to %s\n",
		res.WindowStart.Local().Format(time.DateTime), res.WindowEnd.Local().Format(time.DateTime))
	if res.NoData || res.UptimeFraction == nil {
		fmt.Fprintln(w, "No data in the requested window.")
		return
	}
	fmt.Fprintf(w, "Uptime: %s%% (%s of %s probes)\n",
		humanize.FtoaWithDigits(*res.UptimeFraction*100, 3),
		humanize.Comma(int64(res.Successes)), humanize.Comma(int64(res.Total)))

	if len(res.Outages) == 0 {
		fmt.Fprintln(w, "No outages.")
		return
	}
	var down time.Duration
	for _, o := range res.Outages {
		down += o.End.Sub(o.Start)
	}
	fmt.Fprintf(w, "Outages: %d, %s down in total\n", len(res.Outages), down.Round(time.Second))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tDURATION\tPROBES\tREASON")
	for _, o := range res.Outages {
		dur := o.End.Sub(o.Start).Round(time.Second).String()
		if o.Ongoing {
			dur += " (ongoing)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", humanize.RelTime(o.Start, now, "ago", "from now"), dur, o.Probes, o.Reason)
	}
	tw.Flush()
}

func printDisruptions(w io.Writer, ds []domain.Disruption, now time.Time) {
	if len(ds) == 0 {
		fmt.Fprintln(w, "No disruptions.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tAT\tDURATION")
	for _, d := range ds {
		dur := d.End.Sub(d.Start).Round(time.Second).String()
		if d.Ongoing {
			dur += " (ongoing)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			humanize.RelTime(d.Start, now, "ago", "from now"), d.Start.Local().Format(time.DateTime), dur)
	}
	tw.Flush()
}

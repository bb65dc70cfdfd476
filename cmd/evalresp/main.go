// Command evalresp evaluates instrument responses from SEED RESP files.
//
// Usage:
//
//	evalresp [flags] STA CHA YYYY DAY MINFREQ MAXFREQ NFREQ [flags]
//	evalresp [flags] -b batchfile
//
// STA and CHA may be comma separated lists with the wildcards * and ?.
// By default every RESP.NET.STA.LOC.CHA file of the current directory is
// searched and AMP/PHASE files are written next to it.
//
// Examples:
//
//	evalresp ANMO BHZ 1995 100 0.01 10 100
//	evalresp -f RESP.IU.ANMO.00.BHZ -u vel -r fap ANMO BHZ 1995 100 0.01 10 100
//	evalresp ANMO BH? 2024 61 0.001 20 200 -stdio -r cs
//	evalresp -x "stationxml-seed-converter --input anmo.xml" ANMO BHZ 2024 61 1 1 1
//	evalresp -export sqlite -export-target resp.db -plot anmo.png ANMO BHZ 2024 61 0.01 10 100
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/golang/glog"
)

func main() {
	// Set defaults for glog flags. Can be overridden via cmdline.
	flag.Set("logtostderr", "false")
	flag.Set("stderrthreshold", "WARNING")
	flag.Set("v", "1")

	var o options
	flag.StringVar(&o.file, "f", "", "RESP file or directory of RESP.NET.STA.LOC.CHA files (default current directory)")
	flag.StringVar(&o.units, "u", "def", "output units: def, dis, vel or acc")
	flag.StringVar(&o.time, "t", "", "time of day HH:MM:SS used to select the epoch")
	flag.StringVar(&o.spacing, "s", "log", "frequency spacing: log or lin")
	flag.StringVar(&o.net, "n", "", "network code list")
	flag.StringVar(&o.loc, "l", "", "location code list (-- or ?? for blank)")
	flag.StringVar(&o.format, "r", "ap", "response type: ap (AMP/PHASE), cs (complex SPECTRA) or fap")
	flag.StringVar(&o.stage, "stage", "", "evaluate stages N or N,M only")
	flag.StringVar(&o.sensitivity, "sensitivity", "nominal", "overall gain: nominal (declared stage 0) or calculated")
	flag.BoolVar(&o.useDelay, "use-delay", false, "apply estimated decimation delay instead of the applied correction")
	flag.BoolVar(&o.unwrap, "unwrap", false, "unwrap phase")
	flag.StringVar(&o.outDir, "o", ".", "output directory")
	flag.BoolVar(&o.stdio, "stdio", false, "write results to standard output instead of files")
	flag.StringVar(&o.converter, "x", "", "command whose standard output supplies the RESP text")
	flag.StringVar(&o.batch, "b", "", "file with one request (STA CHA YYYY DAY MINFREQ MAXFREQ NFREQ) per line")
	flag.StringVar(&o.exportKind, "export", "", "also export results: csv, sqlite, mysql, postgres or elastic")
	flag.StringVar(&o.exportTarget, "export-target", "", "export file, DSN or URL")
	flag.StringVar(&o.plot, "plot", "", "write a PNG Bode plot to this path")
	flag.Float64Var(&o.tolerance, "tolerance", 0.05, "relative sensitivity discrepancy that is reported")
	flag.BoolVar(&o.a0, "a0", false, "correct discrepant A0 normalization factors")
	flag.IntVar(&o.workers, "workers", runtime.GOMAXPROCS(0), "evaluation workers")
	flag.BoolVar(&o.verbose, "verbose", false, "print a summary of every evaluated epoch")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: evalresp [flags] STA CHA YYYY DAY MINFREQ MAXFREQ NFREQ [flags]\n")
		fmt.Fprintf(os.Stderr, "       evalresp [flags] -b batchfile\n\n")
		fmt.Fprintf(os.Stderr, "Evaluates instrument responses from SEED RESP files.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  evalresp ANMO BHZ 1995 100 0.01 10 100\n")
		fmt.Fprintf(os.Stderr, "  evalresp -f RESP.IU.ANMO.00.BHZ -u vel -r fap ANMO BHZ 1995 100 0.01 10 100\n")
		fmt.Fprintf(os.Stderr, "  evalresp ANMO BH? 2024 61 0.001 20 200 -stdio -r cs\n")
	}
	flag.Parse()

	// Flags may also follow the positional arguments.
	args := flag.Args()
	if len(args) > 7 {
		if err := flag.CommandLine.Parse(args[7:]); err != nil {
			os.Exit(2)
		}
		args = append(args[:7:7], flag.Args()...)
	}

	reqs, err := requests(args, o.batch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "evalresp: %v\n\n", err)
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = run(ctx, o, reqs, os.Stdout)
	glog.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "evalresp: %v\n", err)
		os.Exit(1)
	}
}


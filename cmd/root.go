package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/n8thangreen/TB-IBM/sim"
)

var (
	// CLI flags for the run
	seed       int64   // Seed for all random draws
	paramsFile string  // YAML parameter file overlaid on the defaults
	logLevel   string  // Log verbosity level
	startYear  float64 // First simulated year
	endYear    float64 // Simulation ends before this year
	maxIndiv   int     // Arena capacity
	maxImm     int     // Slots reserved for non-UK-born individuals
	initUK     int     // Initial UK-born population
	initImm    int     // Initial non-UK-born population

	// CLI flags for the event queue and output
	buckets    int     // Scheduler buckets (0 means one per individual)
	cycleWidth float64 // Years per bucket cycle
	interval   float64 // Years between snapshots
	outputDB   string  // SQLite file for snapshots (empty disables)
	profile    bool    // Print a bucket occupancy profile after the run
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "tb-ibm",
	Short: "Individual-based discrete-event simulator for TB epidemiology",
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the epidemic simulation",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		p, err := sim.LoadParams(paramsFile)
		if err != nil {
			logrus.Fatalf("Invalid parameters: %v", err)
		}
		overlayFlags(cmd, &p)
		if err := p.Validate(); err != nil {
			logrus.Fatalf("Invalid parameters: %v", err)
		}

		logrus.Infof("Starting simulation %g-%g, arena=%d, seed=%d",
			p.Time.StartYear, p.Time.EndYear, p.Population.MaxIndividuals, seed)

		startTime := time.Now()

		s, err := sim.NewSimulator(p, seed)
		if err != nil {
			logrus.Fatalf("Simulator setup failed: %v", err)
		}
		if outputDB != "" {
			rec, err := sim.NewRecorder(outputDB)
			if err != nil {
				logrus.Fatalf("Recorder setup failed: %v", err)
			}
			defer rec.Close()
			s.AttachRecorder(rec)
		}

		if err := s.Setup(); err != nil {
			logrus.Fatalf("Population setup failed: %v", err)
		}
		if err := s.Run(); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		if profile {
			if _, err := s.Scheduler().Profile("final"); err != nil {
				logrus.Fatalf("Scheduler profile failed: %v", err)
			}
		}

		logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	},
}

// overlayFlags copies explicitly-set CLI flags over the loaded parameters,
// so a flag always wins over the YAML file.
func overlayFlags(cmd *cobra.Command, p *sim.Params) {
	f := cmd.Flags()
	if f.Changed("start") {
		p.Time.StartYear = startYear
	}
	if f.Changed("end") {
		p.Time.EndYear = endYear
	}
	if f.Changed("max-individuals") {
		p.Population.MaxIndividuals = maxIndiv
	}
	if f.Changed("max-immigrants") {
		p.Population.MaxImmigrants = maxImm
	}
	if f.Changed("initial-uk-born") {
		p.Population.InitialUKBorn = initUK
	}
	if f.Changed("initial-non-uk") {
		p.Population.InitialNonUK = initImm
	}
	if f.Changed("buckets") {
		p.Scheduler.Buckets = buckets
	}
	if f.Changed("cycle-width") {
		p.Scheduler.CycleWidth = cycleWidth
	}
	if f.Changed("report-interval") {
		p.Reporting.Interval = interval
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for all random draws")
	runCmd.Flags().StringVar(&paramsFile, "params", "", "YAML parameter file overlaid on the defaults")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Model period and population
	runCmd.Flags().Float64Var(&startYear, "start", 1981, "First simulated year")
	runCmd.Flags().Float64Var(&endYear, "end", 2010, "Simulation ends before this year")
	runCmd.Flags().IntVar(&maxIndiv, "max-individuals", 2000000, "Population arena capacity")
	runCmd.Flags().IntVar(&maxImm, "max-immigrants", 400000, "Arena slots reserved for non-UK-born individuals")
	runCmd.Flags().IntVar(&initUK, "initial-uk-born", 900000, "Initial UK-born population")
	runCmd.Flags().IntVar(&initImm, "initial-non-uk", 100000, "Initial non-UK-born population")

	// Event queue and output
	runCmd.Flags().IntVar(&buckets, "buckets", 0, "Scheduler buckets (0 means one per individual)")
	runCmd.Flags().Float64Var(&cycleWidth, "cycle-width", 20, "Years per scheduler bucket cycle")
	runCmd.Flags().Float64Var(&interval, "report-interval", 0.5, "Years between population snapshots")
	runCmd.Flags().StringVar(&outputDB, "output-db", "", "SQLite file for snapshots (empty disables recording)")
	runCmd.Flags().BoolVar(&profile, "profile", false, "Print a scheduler bucket occupancy profile after the run")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}

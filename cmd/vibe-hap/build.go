package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/vibe-hap/internal/apply"
	"github.com/inodb/vibe-hap/internal/duckdb"
	"github.com/inodb/vibe-hap/internal/genome"
	"github.com/inodb/vibe-hap/internal/output"
	"github.com/inodb/vibe-hap/internal/variant"
)

// buildConfig is the resolved configuration of one build run.
type buildConfig struct {
	Reference string
	SNV       string
	SV        string
	Output    string
	Genome    genome.Options
	Apply     apply.Options
	Verbose   bool
	Ledger    string
	RefCache  string
	LineWidth int

	// UnknownTypes are allow-listed names with no handler. Records of these
	// types are queued and then ignored at replay.
	UnknownTypes []string
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Apply SNV and SV calls to a reference",
		Long: `Apply SNV and SV calls to a FASTA reference and write the donor genome.

Same-length substitutions, deletions and in-place inversions are applied as
records are read. Insertions, duplications, translocations and inversions that
move material are replayed afterwards, highest position first. In diploid mode
a second haplotype is written next to the output (donor.fa -> donor.hap2.fa).`,
		Example: `  vibe-hap build --reference hg38.fa --snv calls.tsv --output donor.fa
  vibe-hap build --reference hg38.fa.gz --sv svs.tsv.bz2 --diploid --sex F --output donor.fa.gz
  vibe-hap build --reference hg38.fa --snv calls.tsv --types snp,sub --output donor.fa`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfigFromViper()
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			defer logger.Sync() //nolint:errcheck
			if len(cfg.UnknownTypes) > 0 {
				logger.Warn("allow-listed variant types have no handler and will be ignored",
					zap.Strings("types", cfg.UnknownTypes))
			}
			return runBuild(cfg, logger)
		},
	}

	f := cmd.Flags()
	f.StringP("reference", "r", "", "Reference FASTA (plain, .gz, .bz2 or .zst)")
	f.StringP("snv", "s", "", "SNV call table")
	f.StringP("sv", "v", "", "SV call table")
	f.StringP("output", "o", "", "Output FASTA for haplotype 1 (.gz to compress)")
	f.StringSlice("types", variant.KnownTypes, "Variant types to apply")
	f.String("sex", string(genome.Male), "Donor sex: M or F")
	f.Bool("diploid", false, "Write a second haplotype")
	f.Bool("verbose", false, "Log progress and run statistics")
	f.Float64("zygosity-threshold", apply.DefaultZygosityThreshold, "Per-haplotype SV frequency a haplotype must exceed")
	f.Bool("key-by-kind", false, "Keep deferred events of different kinds at one position")
	f.String("ledger", "", "Record every edit in this DuckDB file")
	f.String("ref-cache", "", "Cache the parsed reference in this directory")
	f.Int("line-width", output.DefaultLineWidth, "Output FASTA line width")

	for _, name := range []string{
		"reference", "snv", "sv", "output", "types", "sex", "diploid", "verbose",
		"zygosity-threshold", "key-by-kind", "ledger", "ref-cache", "line-width",
	} {
		viper.BindPFlag("build."+name, f.Lookup(name)) //nolint:errcheck
	}

	return cmd
}

// buildConfigFromViper resolves flags, environment and config file values.
// Every problem it reports is a usage error.
func buildConfigFromViper() (buildConfig, error) {
	cfg := buildConfig{
		Reference: viper.GetString("build.reference"),
		SNV:       viper.GetString("build.snv"),
		SV:        viper.GetString("build.sv"),
		Output:    viper.GetString("build.output"),
		Verbose:   viper.GetBool("build.verbose"),
		Ledger:    viper.GetString("build.ledger"),
		RefCache:  viper.GetString("build.ref-cache"),
		LineWidth: viper.GetInt("build.line-width"),
	}

	if cfg.Reference == "" {
		return cfg, usageErrorf("--reference is required")
	}
	if cfg.Output == "" {
		return cfg, usageErrorf("--output is required")
	}
	if cfg.SNV == "" && cfg.SV == "" {
		return cfg, usageErrorf("at least one of --snv or --sv is required")
	}
	if cfg.LineWidth <= 0 {
		return cfg, usageErrorf("--line-width must be positive, got %d", cfg.LineWidth)
	}

	sex, err := genome.ParseSex(viper.GetString("build.sex"))
	if err != nil {
		return cfg, &usageError{err: err}
	}
	cfg.Genome = genome.Options{
		Diploid: viper.GetBool("build.diploid"),
		Sex:     sex,
	}

	types := variant.NewTypeSet(viper.GetStringSlice("build.types"))
	cfg.UnknownTypes = types.Unknown()
	cfg.Apply = apply.Options{
		Types:             types,
		ZygosityThreshold: viper.GetFloat64("build.zygosity-threshold"),
		KeyByKind:         viper.GetBool("build.key-by-kind"),
	}
	if err := cfg.Apply.Validate(); err != nil {
		return cfg, &usageError{err: err}
	}

	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.InfoLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

func runBuild(cfg buildConfig, logger *zap.Logger) error {
	ref, err := loadReference(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("loaded reference",
		zap.String("path", cfg.Reference),
		zap.Int("chromosomes", ref.Len()))

	g := genome.New(ref, cfg.Genome)

	engine := apply.NewEngine(g, cfg.Apply)
	engine.SetLogger(logger)
	var edits *apply.EditLog
	if cfg.Ledger != "" {
		edits = &apply.EditLog{}
		engine.SetRecorder(edits)
	}

	if cfg.SNV != "" {
		if err := applySNVFile(engine, cfg.SNV); err != nil {
			return err
		}
	}
	if cfg.SV != "" {
		if err := applySVFile(engine, cfg.SV); err != nil {
			return err
		}
	}

	if err := engine.Finish(); err != nil {
		return err
	}

	if err := output.WriteFile(cfg.Output, g.H1, cfg.LineWidth); err != nil {
		return err
	}
	logger.Info("wrote haplotype", zap.Int("haplotype", 1), zap.String("path", cfg.Output))

	if g.Diploid() {
		path := output.Haplotype2Path(cfg.Output)
		if err := output.WriteFile(path, g.H2, cfg.LineWidth); err != nil {
			return err
		}
		logger.Info("wrote haplotype", zap.Int("haplotype", 2), zap.String("path", path))
	}

	if edits != nil {
		runID := fmt.Sprintf("%s@%s", filepath.Base(cfg.Output), time.Now().UTC().Format("20060102T150405Z"))
		if err := writeLedger(cfg.Ledger, runID, edits.Edits); err != nil {
			return err
		}
		logger.Info("wrote edit ledger",
			zap.String("path", cfg.Ledger),
			zap.String("run", runID),
			zap.Int("edits", len(edits.Edits)))
	}

	return nil
}

// applySNVFile streams an SNV table through the engine. Failing to open, read
// or close the file is a FileAccessError; malformed rows are not.
func applySNVFile(engine *apply.Engine, path string) error {
	p, err := variant.NewSNVParser(path)
	if err != nil {
		return &genome.FileAccessError{Path: path, Err: err}
	}
	err = engine.ApplySNVs(p)
	if cerr := p.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return &genome.FileAccessError{Path: path, Err: err}
	}
	return nil
}

// applySVFile is applySNVFile for SV tables.
func applySVFile(engine *apply.Engine, path string) error {
	p, err := variant.NewSVParser(path)
	if err != nil {
		return &genome.FileAccessError{Path: path, Err: err}
	}
	err = engine.ApplySVs(p)
	if cerr := p.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return &genome.FileAccessError{Path: path, Err: err}
	}
	return nil
}

// loadReference reads the reference, going through the gob cache when one is
// configured. A cache that cannot be read or written is logged and bypassed.
func loadReference(cfg buildConfig, logger *zap.Logger) (*genome.Haplotype, error) {
	if cfg.RefCache == "" || cfg.Reference == "-" {
		return genome.LoadReference(cfg.Reference)
	}

	fp, err := duckdb.StatFile(cfg.Reference)
	if err != nil {
		return nil, &genome.FileAccessError{Path: cfg.Reference, Err: err}
	}

	rc := duckdb.NewReferenceCache(cfg.RefCache)
	if rc.Valid(fp) {
		ref, err := rc.Load()
		if err == nil {
			logger.Info("using cached reference", zap.String("dir", cfg.RefCache))
			return ref, nil
		}
		logger.Warn("discarding unreadable reference cache", zap.Error(err))
		rc.Clear()
	}

	ref, err := genome.LoadReference(cfg.Reference)
	if err != nil {
		return nil, err
	}
	if err := rc.Write(ref, fp); err != nil {
		logger.Warn("could not write reference cache", zap.Error(err))
	}
	return ref, nil
}

func writeLedger(path, runID string, edits []apply.Edit) error {
	store, err := duckdb.Open(path)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	if err := store.WriteEdits(runID, edits); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

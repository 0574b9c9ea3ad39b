package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/postal"
	"github.com/wippyai/postal/config"
	"github.com/wippyai/postal/server"
)

// execute runs the command line args against a and releases the backend.
func execute(ctx context.Context, a *app, args []string) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "postal",
		Short: "Parse, normalize and deduplicate addresses with libpostal",
		Long: `postal runs libpostal either as a WebAssembly guest (the default) or
through the native C library when built with -tags libpostal.

Commands that take text read it from their arguments, or line by line from
stdin when no argument is given. Records are written as
"label=value; label=value".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&a.backend, "backend", config.BackendWasm, "backend to run: wasm or native")
	pf.StringVar(&a.dataDir, "data-dir", "", "libpostal data directory (default $"+config.EnvDataDir+")")
	pf.StringVar(&a.wasm, "wasm", "", "libpostal guest module for the wasm backend")
	pf.BoolVar(&a.jsonOut, "json", false, "write JSON lines (default when stdout is not a terminal)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newParseCmd(a),
		newExpandCmd(a),
		newNormalizeCmd(a),
		newNormalizedTokensCmd(a),
		newTokenizeCmd(a),
		newClassifyCmd(a),
		newDupeCmd(a),
		newHashCmd(a),
		newLanguagesCmd(a),
		newServeCmd(a),
		newReplCmd(a),
		newDataCmd(a),
	)
	return root
}

// result is what one input produced: the JSON value and its text rendering.
type result struct {
	value any
	text  string
}

type inputFunc func(ctx context.Context, c *postal.Client, input string) (result, error)

// each runs fn for every input and prints the results under key.
func (a *app) each(cmd *cobra.Command, args []string, sep, key string, fn inputFunc) error {
	inputs, err := readInputs(args, sep, a.stdin)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	c, err := a.connect(ctx)
	if err != nil {
		return err
	}
	p := &printer{w: a.stdout, json: a.wantJSON(cmd)}
	for _, input := range inputs {
		r, err := fn(ctx, c, input)
		if err != nil {
			return fmt.Errorf("%q: %w", input, err)
		}
		if err := p.emit(input, key, r.value, r.text); err != nil {
			return err
		}
	}
	return nil
}

// single runs fn once for a fixed set of arguments.
func (a *app) single(cmd *cobra.Command, input, key string, fn inputFunc) error {
	ctx := cmd.Context()
	c, err := a.connect(ctx)
	if err != nil {
		return err
	}
	r, err := fn(ctx, c, input)
	if err != nil {
		return err
	}
	p := &printer{w: a.stdout, json: a.wantJSON(cmd)}
	return p.emit(input, key, r.value, r.text)
}

func newParseCmd(a *app) *cobra.Command {
	var opts postal.ParseOptions
	cmd := &cobra.Command{
		Use:   "parse [address]",
		Short: "Label the components of an address",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.each(cmd, args, " ", "components", func(ctx context.Context, c *postal.Client, in string) (result, error) {
				components, err := c.ParseAddress(ctx, in, opts)
				return result{components, formatComponents(components)}, err
			})
		},
	}
	cmd.Flags().StringVar(&opts.Language, "language", "", "language hint")
	cmd.Flags().StringVar(&opts.Country, "country", "", "country hint")
	return cmd
}

func newExpandCmd(a *app) *cobra.Command {
	var (
		root      bool
		languages []string
	)
	cmd := &cobra.Command{
		Use:   "expand [address]",
		Short: "Expand an address into its normalized forms",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := postal.DefaultExpandOptions()
			opts.Root = root
			opts.Languages = languages
			return a.each(cmd, args, " ", "expansions", func(ctx context.Context, c *postal.Client, in string) (result, error) {
				expansions, err := c.ExpandAddress(ctx, in, opts)
				return result{expansions, formatLines(expansions)}, err
			})
		},
	}
	cmd.Flags().BoolVar(&root, "root", false, "strip affixes and keep only the root of each expansion")
	cmd.Flags().StringSliceVarP(&languages, "language", "l", nil, "languages to expand with (default: detected)")
	return cmd
}

func newNormalizeCmd(a *app) *cobra.Command {
	var languages []string
	cmd := &cobra.Command{
		Use:   "normalize [text]",
		Short: "Normalize a string",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := postal.DefaultNormalizeOptions()
			opts.Languages = languages
			return a.each(cmd, args, " ", "normalized", func(ctx context.Context, c *postal.Client, in string) (result, error) {
				s, err := c.NormalizeString(ctx, in, opts)
				return result{s, s}, err
			})
		},
	}
	cmd.Flags().StringSliceVarP(&languages, "language", "l", nil, "languages to normalize with")
	return cmd
}

func newNormalizedTokensCmd(a *app) *cobra.Command {
	var (
		languages  []string
		whitespace bool
	)
	cmd := &cobra.Command{
		Use:   "tokens [text]",
		Short: "Normalize a string and split it into typed tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := postal.DefaultNormalizeOptions()
			opts.Languages = languages
			opts.Whitespace = whitespace
			return a.each(cmd, args, " ", "tokens", func(ctx context.Context, c *postal.Client, in string) (result, error) {
				tokens, err := c.NormalizedTokens(ctx, in, opts)
				return result{tokens, formatNormalizedTokens(tokens)}, err
			})
		},
	}
	cmd.Flags().StringSliceVarP(&languages, "language", "l", nil, "languages to normalize with")
	cmd.Flags().BoolVar(&whitespace, "whitespace", false, "keep whitespace tokens")
	return cmd
}

func newTokenizeCmd(a *app) *cobra.Command {
	var whitespace bool
	cmd := &cobra.Command{
		Use:   "tokenize [text]",
		Short: "Split a string into typed tokens without normalizing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.each(cmd, args, " ", "tokens", func(ctx context.Context, c *postal.Client, in string) (result, error) {
				tokens, err := c.Tokenize(ctx, in, whitespace)
				return result{tokens, formatTokens(in, tokens)}, err
			})
		},
	}
	cmd.Flags().BoolVar(&whitespace, "whitespace", false, "keep whitespace tokens")
	return cmd
}

func newClassifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classify [address]",
		Short: "Rank the languages an address is written in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.each(cmd, args, " ", "languages", func(ctx context.Context, c *postal.Client, in string) (result, error) {
				scores, err := c.ClassifyLanguage(ctx, in)
				return result{scores, formatLanguages(scores)}, err
			})
		},
	}
}

func newDupeCmd(a *app) *cobra.Command {
	var languages []string
	cmd := &cobra.Command{
		Use:   "dupe <kind> <value1> <value2>",
		Short: "Compare two values for duplication",
		Long: `Compare two values with one of libpostal's exact-duplicate checks.
kind is one of: name, street, house_number, po_box, unit, floor, postal_code.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := postal.ParseDuplicateKind(args[0])
			if err != nil {
				return err
			}
			input := args[1] + " | " + args[2]
			return a.single(cmd, input, "status", func(ctx context.Context, c *postal.Client, _ string) (result, error) {
				status, err := c.IsDuplicate(ctx, kind, args[1], args[2], postal.DuplicateOptions{Languages: languages})
				return result{status, status.String()}, err
			})
		},
	}
	cmd.PersistentFlags().StringSliceVarP(&languages, "language", "l", nil, "languages to compare in")
	cmd.AddCommand(newToponymDupeCmd(a, &languages), newFuzzyDupeCmd(a, &languages))
	return cmd
}

func newToponymDupeCmd(a *app, languages *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "toponym <record1> <record2>",
		Short: "Compare the place components of two records",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r1, err := parseRecord(args[0])
			if err != nil {
				return err
			}
			r2, err := parseRecord(args[1])
			if err != nil {
				return err
			}
			input := args[0] + " | " + args[1]
			return a.single(cmd, input, "status", func(ctx context.Context, c *postal.Client, _ string) (result, error) {
				status, err := c.IsToponymDuplicate(ctx, r1, r2, postal.DuplicateOptions{Languages: *languages})
				return result{status, status.String()}, err
			})
		},
	}
}

func newFuzzyDupeCmd(a *app, languages *[]string) *cobra.Command {
	opts := postal.DefaultFuzzyDuplicateOptions()
	cmd := &cobra.Command{
		Use:   "fuzzy <name|street> <tokens1> <tokens2>",
		Short: "Compare two scored token lists",
		Long: `Compare two token lists with libpostal's fuzzy duplicate check. Tokens are
whitespace separated and may carry a score: "main:0.8 street:0.2".`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := postal.ParseFuzzyKind(args[0])
			if err != nil {
				return err
			}
			t1, err := parseFuzzyTokens(args[1])
			if err != nil {
				return err
			}
			t2, err := parseFuzzyTokens(args[2])
			if err != nil {
				return err
			}
			opts.Languages = *languages
			input := args[1] + " | " + args[2]
			return a.single(cmd, input, "result", func(ctx context.Context, c *postal.Client, _ string) (result, error) {
				r, err := c.IsDuplicateFuzzy(ctx, kind, t1, t2, opts)
				return result{r, formatFuzzy(r)}, err
			})
		},
	}
	cmd.Flags().Float64Var(&opts.NeedsReviewThreshold, "needs-review", opts.NeedsReviewThreshold, "similarity at which a pair needs review")
	cmd.Flags().Float64Var(&opts.LikelyDupeThreshold, "likely-dupe", opts.LikelyDupeThreshold, "similarity at which a pair is a likely duplicate")
	return cmd
}

func newHashCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Compute near-duplicate hashes",
	}
	cmd.AddCommand(newNameHashCmd(a), newNearDupeHashCmd(a))
	return cmd
}

func newNameHashCmd(a *app) *cobra.Command {
	var languages []string
	cmd := &cobra.Command{
		Use:   "name [name]",
		Short: "Hash a venue or person name",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := postal.DefaultNameHashOptions()
			opts.Languages = languages
			return a.each(cmd, args, " ", "hashes", func(ctx context.Context, c *postal.Client, in string) (result, error) {
				hashes, err := c.NameHashes(ctx, in, opts)
				return result{hashes, formatLines(hashes)}, err
			})
		},
	}
	cmd.Flags().StringSliceVarP(&languages, "language", "l", nil, "languages to expand the name with")
	return cmd
}

func newNearDupeHashCmd(a *app) *cobra.Command {
	var (
		opts   = postal.DefaultNearDupeOptions()
		latlon []float64
	)
	cmd := &cobra.Command{
		Use:   "near-dupe [label=value...]",
		Short: "Hash a labeled record for near-duplicate detection",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(latlon) > 0 {
				if len(latlon) != 2 {
					return fmt.Errorf("--latlon takes latitude,longitude")
				}
				opts.WithLatLon = true
				opts.Latitude, opts.Longitude = latlon[0], latlon[1]
			}
			return a.each(cmd, args, ";", "hashes", func(ctx context.Context, c *postal.Client, in string) (result, error) {
				record, err := parseRecord(in)
				if err != nil {
					return result{}, err
				}
				hashes, err := c.NearDupeHashes(ctx, record, opts)
				return result{hashes, formatLines(hashes)}, err
			})
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&opts.Languages, "language", "l", nil, "languages of the record")
	f.BoolVar(&opts.WithName, "with-name", opts.WithName, "include name keys")
	f.BoolVar(&opts.WithAddress, "with-address", opts.WithAddress, "include address keys")
	f.BoolVar(&opts.WithUnit, "with-unit", opts.WithUnit, "include unit keys")
	f.BoolVar(&opts.WithCityOrEquivalent, "with-city", opts.WithCityOrEquivalent, "include city keys")
	f.BoolVar(&opts.WithSmallContainingBoundaries, "with-boundaries", opts.WithSmallContainingBoundaries, "include small containing boundary keys")
	f.BoolVar(&opts.WithPostalCode, "with-postcode", opts.WithPostalCode, "include postal code keys")
	f.Float64SliceVar(&latlon, "latlon", nil, "latitude,longitude for geohash keys")
	f.Uint32Var(&opts.GeohashPrecision, "geohash-precision", opts.GeohashPrecision, "geohash precision")
	f.BoolVar(&opts.NameAndAddressKeys, "name-and-address", opts.NameAndAddressKeys, "emit name and address keys")
	f.BoolVar(&opts.NameOnlyKeys, "name-only", opts.NameOnlyKeys, "emit name-only keys")
	f.BoolVar(&opts.AddressOnlyKeys, "address-only", opts.AddressOnlyKeys, "emit address-only keys")
	return cmd
}

func newLanguagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "languages [label=value...]",
		Short: "List the languages spoken at a labeled place",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.each(cmd, args, ";", "languages", func(ctx context.Context, c *postal.Client, in string) (result, error) {
				record, err := parseRecord(in)
				if err != nil {
					return result{}, err
				}
				languages, err := c.PlaceLanguages(ctx, record)
				return result{languages, formatLines(languages)}, err
			})
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the libpostal operations over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg.Server
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := a.connect(ctx)
			if err != nil {
				return err
			}
			a.logger.Info("starting server",
				zap.String("addr", cfg.Addr),
				zap.String("backend", a.cfg.Backend))
			return server.New(c, cfg, server.WithLogger(a.logger)).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newReplCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Explore the operations interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepl(cmd.Context(), a)
		},
	}
}

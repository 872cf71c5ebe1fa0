package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/meishi/internal/blob"
	"github.com/hpungsan/meishi/internal/codec"
	"github.com/hpungsan/meishi/internal/config"
	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/extract"
	"github.com/hpungsan/meishi/internal/ops"
	"github.com/hpungsan/meishi/internal/state"
	"github.com/hpungsan/meishi/internal/web"
)

// maxStdinBytes caps memo text read from stdin.
const maxStdinBytes = 1 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(st *state.State, cfg *config.Config, svc extract.Service) *cli.App {
	app := &cli.App{
		Name:    "meishi",
		Usage:   "Business card and insurance policy store",
		Version: Version,
		Commands: []*cli.Command{
			importCmd(st, cfg),
			exportCmd(st, cfg),
			listCmd(st),
			fetchCmd(st),
			recentCmd(st),
			deleteCmd(st),
			mapCmd(st, cfg, svc),
			serveCmd(st, cfg, svc),
			memoCmd(st, svc),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func kindFlag() cli.Flag {
	return &cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Value: string(codec.KindContacts), Usage: "Record kind: contacts|policies"}
}

// importCmd creates the import command.
func importCmd(st *state.State, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import contacts or policies from a CSV or TXT file (kind is detected)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, st, cfg, ops.ImportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(st *state.State, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export contacts or policies to a CSV, TXT or XLSX file",
		Flags: []cli.Flag{
			kindFlag(),
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "csv|txt|xlsx (default: from --path, else csv)"},
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: <data dir>/exports/<kind>-<timestamp>.<format>)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, st, cfg, ops.ExportInput{
				Kind:   c.String("kind"),
				Format: c.String("format"),
				Path:   c.String("path"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(st *state.State) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List contacts or policies",
		Flags: []cli.Flag{
			kindFlag(),
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Case-insensitive substring filter"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(st, ops.ListInput{
				Kind:   c.String("kind"),
				Query:  c.String("query"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(st *state.State) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a contact or policy by ID",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{kindFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("id is required"))
			}
			kind, err := ops.ParseKind(c.String("kind"))
			if err != nil {
				return outputError(err)
			}

			var output any
			if kind == codec.KindPolicies {
				output, err = ops.FetchPolicy(st, c.Args().First())
			} else {
				output, err = ops.FetchContact(c.Context, st, c.Args().First())
			}
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// recentCmd creates the recent command.
func recentCmd(st *state.State) *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "List recently viewed contacts",
		Action: func(c *cli.Context) error {
			return outputJSON(map[string]any{"items": ops.Recent(st)})
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(st *state.State) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Permanently delete a contact or policy",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{kindFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("id is required"))
			}
			output, err := ops.Delete(c.Context, st, ops.DeleteInput{Kind: c.String("kind"), ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// mapCmd creates the map command.
func mapCmd(st *state.State, cfg *config.Config, svc extract.Service) *cli.Command {
	return &cli.Command{
		Name:  "map",
		Usage: "Fill an XLSX template's columns with records",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Required: true, Usage: "XLSX template path (first row is the header)"},
			kindFlag(),
			&cli.StringSliceFlag{Name: "set", Usage: "Column mapping external=internal (repeatable; external= leaves a column empty)"},
			&cli.BoolFlag{Name: "propose", Usage: "Ask the extraction service to map the remaining columns"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output path (default: <data dir>/exports/<kind>-filled-<timestamp>.xlsx)"},
		},
		Action: func(c *cli.Context) error {
			set, err := parseSet(c.StringSlice("set"))
			if err != nil {
				return outputError(err)
			}

			output, err := ops.ColumnApply(c.Context, st, cfg, svc, ops.ColumnApplyInput{
				Kind:     c.String("kind"),
				Template: c.String("template"),
				Out:      c.String("out"),
				Set:      set,
				Propose:  c.Bool("propose"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(st *state.State, cfg *config.Config, svc extract.Service) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Usage: "Address to bind (default: from config, 127.0.0.1)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on (default: from config, 8080)"},
		},
		Action: func(c *cli.Context) error {
			if c.IsSet("bind") {
				cfg.Bind = c.String("bind")
			}
			if c.IsSet("port") {
				cfg.Port = c.Int("port")
			}

			var images blob.Store
			ms, err := blob.FromConfig(c.Context, cfg)
			if err != nil {
				return outputError(errors.NewExternalServiceFailure("object storage", err))
			}
			if ms != nil {
				images = ms
			}

			return web.Run(web.NewServer(st, svc, images, cfg, Version))
		},
	}
}

// memoCmd creates the memo command group.
func memoCmd(st *state.State, svc extract.Service) *cli.Command {
	return &cli.Command{
		Name:  "memo",
		Usage: "Manage memos",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a memo (text from arguments or stdin)",
				ArgsUsage: "[text]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "summarize", Aliases: []string{"s"}, Usage: "Store a generated summary with the memo"},
				},
				Action: func(c *cli.Context) error {
					text := strings.Join(c.Args().Slice(), " ")
					if text == "" && stdinHasData() {
						var err error
						if text, err = readStdin(maxStdinBytes); err != nil {
							return outputError(errors.NewInvalidRequest(err.Error()))
						}
					}

					output, err := ops.AddMemo(c.Context, st, svc, ops.AddMemoInput{Text: text, Summarize: c.Bool("summarize")})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List memos, newest first",
				Action: func(c *cli.Context) error {
					return outputJSON(map[string]any{"items": st.Memos()})
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a memo",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return outputError(errors.NewInvalidRequest("id is required"))
					}
					output, err := ops.DeleteMemo(c.Context, st, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if mErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", mErr.Code, mErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}

// parseSet parses repeated external=internal flags.
func parseSet(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	set := make(map[string]string, len(values))
	for _, v := range values {
		external, internal, ok := strings.Cut(v, "=")
		external = strings.TrimSpace(external)
		if !ok || external == "" {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("--set %q must look like header=field", v))
		}
		set[external] = strings.TrimSpace(internal)
	}
	return set, nil
}


package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/evanschultz/pdwatch/internal/adapters/server"
	"github.com/evanschultz/pdwatch/internal/adapters/server/common"
	"github.com/evanschultz/pdwatch/internal/app"
	"github.com/evanschultz/pdwatch/internal/domain"
	"github.com/evanschultz/pdwatch/internal/tui"
	"github.com/spf13/cobra"
)

// checkOptions stores flags for the check command.
type checkOptions struct {
	family        string
	category      string
	country       string
	date          string
	permDays      int
	allCategories bool
	asJSON        bool
	raw           bool
	width         int
}

// newCheckCommand evaluates one priority date from flags.
func newCheckCommand(opts *rootOptions) *cobra.Command {
	var o checkOptions
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate a priority date and project its timeline",
		Example: "  pdwatch check --family employment --category EB2 --country India --date 2013-06-01\n" +
			"  pdwatch check --family family --all-categories --country Mexico --date 06/01/2013 --json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, opts, o)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&o.family, "family", "", "visa family: family or employment")
	flags.StringVar(&o.category, "category", "", "preference category, e.g. F2A or EB2")
	flags.StringVar(&o.country, "country", "All Chargeability Areas", "country of chargeability")
	flags.StringVar(&o.date, "date", "", "priority date (YYYY-MM-DD or MM/DD/YYYY)")
	flags.IntVar(&o.permDays, "perm-days", 0, "override the stored PERM processing time in days")
	flags.BoolVar(&o.allCategories, "all-categories", false, "check every category of the family")
	flags.BoolVar(&o.asJSON, "json", false, "print JSON instead of a rendered report")
	flags.BoolVar(&o.raw, "raw", false, "print the report as plain markdown")
	flags.IntVar(&o.width, "width", 80, "word wrap width for the rendered report")
	return cmd
}

// runCheck runs the check command flow.
func runCheck(cmd *cobra.Command, opts *rootOptions, o checkOptions) error {
	family, err := domain.ParseFamily(o.family)
	if err != nil {
		return err
	}
	pd, err := domain.ParseDate(o.date)
	if err != nil {
		return err
	}
	if o.permDays < 0 {
		return fmt.Errorf("--perm-days must be >= 0")
	}
	if !o.allCategories && strings.TrimSpace(o.category) == "" {
		return fmt.Errorf("--category is required unless --all-categories is set")
	}

	var inputs []app.CheckInput
	if o.allCategories {
		for _, category := range domain.Categories(family) {
			inputs = append(inputs, app.CheckInput{Family: family, Category: category.Label, Country: o.country, PriorityDate: pd, PermDays: o.permDays})
		}
	} else {
		inputs = append(inputs, app.CheckInput{Family: family, Category: o.category, Country: o.country, PriorityDate: pd, PermDays: o.permDays})
	}

	s, err := opts.open(cmd, "check")
	if err != nil {
		return err
	}
	defer s.Close()

	reports, err := s.svc.CheckMany(cmd.Context(), inputs)
	if err != nil {
		s.logger.Debug("check failed", "err", err)
		return checkError(err)
	}
	s.logger.Debug("check complete", "reports", len(reports))

	out := cmd.OutOrStdout()
	if o.asJSON {
		views := make([]common.CheckResponse, 0, len(reports))
		for _, report := range reports {
			views = append(views, common.ConvertReport(report))
		}
		if !o.allCategories {
			return writeJSON(out, views[0])
		}
		return writeJSON(out, views)
	}
	for i, report := range reports {
		if i > 0 {
			writeLine(out, "")
		}
		md := tui.ReportMarkdown(report)
		if o.raw {
			_, _ = io.WriteString(out, md)
			continue
		}
		_, _ = io.WriteString(out, tui.RenderMarkdown(md, o.width))
	}
	return nil
}

// checkError adds a next step to errors the user can fix by loading data.
func checkError(err error) error {
	if errors.Is(err, app.ErrNoBulletin) {
		return fmt.Errorf("%w (try `pdwatch refresh`)", err)
	}
	return err
}

// newRefreshCommand fetches the latest documents from the remote source.
func newRefreshCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the latest bulletin and PERM processing time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open(cmd, "refresh")
			if err != nil {
				return err
			}
			defer s.Close()

			s.logger.Info("command flow start", "command", "refresh")
			result, err := s.svc.RefreshFromSource(cmd.Context())
			if err != nil {
				s.logger.Error("command flow failed", "command", "refresh", "err", err)
				return fmt.Errorf("refresh: %w", err)
			}
			out := cmd.OutOrStdout()
			writeLine(out, "bulletin: %s", domain.FormatMonth(result.Bulletin.BulletinMonth))
			if result.PermErr != nil {
				writeLine(out, "perm: unchanged (%v)", result.PermErr)
			} else {
				writeLine(out, "perm: %d days", result.PermDays)
			}
			return nil
		},
	}
}

// newImportCommand groups file and manual ingestion.
func newImportCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import bulletin, forecast or PERM data",
	}

	var month string
	bulletin := &cobra.Command{
		Use:   "bulletin FILE",
		Short: "Store a bulletin document ('-' reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			s, err := opts.open(cmd, "import bulletin")
			if err != nil {
				return err
			}
			defer s.Close()
			record, err := s.svc.ImportBulletin(cmd.Context(), data, month, "import")
			if err != nil {
				return fmt.Errorf("import bulletin: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "bulletin: %s (%s)", domain.FormatMonth(record.BulletinMonth), record.ID)
			return nil
		},
	}
	bulletin.Flags().StringVar(&month, "month", "", "bulletin month, e.g. 2026-10 (defaults to the document's month)")

	var familyName string
	forecast := &cobra.Command{
		Use:   "forecast FILE",
		Short: "Store a forecast document for one family ('-' reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			family, err := domain.ParseFamily(familyName)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			s, err := opts.open(cmd, "import forecast")
			if err != nil {
				return err
			}
			defer s.Close()
			usable, err := s.svc.ImportForecast(cmd.Context(), family, data)
			if err != nil {
				return fmt.Errorf("import forecast: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "forecast: %s, %d categories", family.Label(), usable)
			return nil
		},
	}
	forecast.Flags().StringVar(&familyName, "family", "employment", "visa family the forecast covers")

	var days int
	perm := &cobra.Command{
		Use:   "perm [FILE]",
		Short: "Record the PERM processing time from --days or a PERM document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) == 1 && days > 0:
				return fmt.Errorf("pass either FILE or --days, not both")
			case len(args) == 1:
				data, err := readInput(cmd, args[0])
				if err != nil {
					return err
				}
				if days, err = domain.DecodePermDays(data); err != nil {
					return fmt.Errorf("decode perm document: %w", err)
				}
			case days <= 0:
				return fmt.Errorf("--days must be > 0")
			}
			s, err := opts.open(cmd, "import perm")
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.svc.SetPermDays(cmd.Context(), days, "manual"); err != nil {
				return fmt.Errorf("import perm: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "perm: %d days", days)
			return nil
		},
	}
	perm.Flags().IntVar(&days, "days", 0, "average PERM processing time in calendar days")

	cmd.AddCommand(bulletin, forecast, perm)
	return cmd
}

// newHistoryCommand compares one combination across stored bulletins.
func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var (
		req    common.TrendRequest
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"trend"},
		Short:   "Show how one cutoff moved across stored bulletins",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open(cmd, "history")
			if err != nil {
				return err
			}
			defer s.Close()

			trend, err := common.NewAppServiceAdapter(s.svc).BulletinTrend(cmd.Context(), req)
			if err != nil {
				return checkError(err)
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, trend)
			}
			writeLine(out, "%s %s, %s (%s): %s, %+d months", trend.Family, trend.Category, trend.Country, trend.Dimension, trend.Trend, trend.MonthsMovement)
			for _, p := range trend.Points {
				switch {
				case !p.Present:
					writeLine(out, "  %s  no data", p.BulletinMonth)
				default:
					writeLine(out, "  %s  %-10s %s", p.BulletinMonth, p.Raw, p.Display)
				}
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.Family, "family", "", "visa family: family or employment")
	flags.StringVar(&req.Category, "category", "", "preference category")
	flags.StringVar(&req.Country, "country", "All Chargeability Areas", "country of chargeability")
	flags.StringVar(&req.Dimension, "dimension", "", "final_action (default) or filing")
	flags.IntVar(&req.Months, "months", app.DefaultTrendMonths, "number of recent bulletins to compare")
	flags.BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// newBulletinCommand prints one table of the loaded bulletin.
func newBulletinCommand(opts *rootOptions) *cobra.Command {
	var (
		req    common.BulletinRequest
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "bulletin",
		Short: "Print cutoffs from the loaded bulletin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open(cmd, "bulletin")
			if err != nil {
				return err
			}
			defer s.Close()

			table, err := common.NewAppServiceAdapter(s.svc).CurrentCutoff(cmd.Context(), req)
			if err != nil {
				return checkError(err)
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, table)
			}
			writeLine(out, "%s %s (%s)", table.BulletinMonth, table.Family, table.Dimension)
			for _, row := range table.Rows {
				writeLine(out, "  %-14s %-44s %s", row.Category, row.Country, row.Display)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.Family, "family", "employment", "visa family: family or employment")
	flags.StringVar(&req.Dimension, "dimension", "", "final_action (default) or filing")
	flags.StringVar(&req.Category, "category", "", "only this category")
	flags.StringVar(&req.Country, "country", "", "only this country")
	flags.BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg server.Config, deps server.Dependencies) error {
	return server.Run(ctx, cfg, deps)
}

// newServeCommand runs the REST and MCP server.
func newServeCommand(opts *rootOptions) *cobra.Command {
	var cfg server.Config
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API and MCP tools over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open(cmd, "serve")
			if err != nil {
				return err
			}
			defer s.Close()

			run := server.Config{
				HTTPBind:      firstNonEmpty(cfg.HTTPBind, s.cfg.Serve.HTTPBind),
				APIEndpoint:   firstNonEmpty(cfg.APIEndpoint, s.cfg.Serve.APIEndpoint),
				MCPEndpoint:   firstNonEmpty(cfg.MCPEndpoint, s.cfg.Serve.MCPEndpoint),
				ServerName:    s.appName,
				ServerVersion: version,
			}
			s.logger.Info("serve starting", "bind", run.HTTPBind, "api", run.APIEndpoint, "mcp", run.MCPEndpoint)
			err = serveCommandRunner(cmd.Context(), run, server.Dependencies{
				Service: common.NewAppServiceAdapter(s.svc),
				Ready:   s.repo.Ping,
			})
			if err != nil {
				s.logger.Error("serve failed", "err", err)
				return fmt.Errorf("serve: %w", err)
			}
			s.logger.Info("serve stopped")
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cfg.HTTPBind, "bind", "", "listen address (overrides serve.http_bind)")
	flags.StringVar(&cfg.APIEndpoint, "api-endpoint", "", "REST mount path (overrides serve.api_endpoint)")
	flags.StringVar(&cfg.MCPEndpoint, "mcp-endpoint", "", "MCP mount path (overrides serve.mcp_endpoint)")
	return cmd
}

// readInput reads one file argument, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// writeJSON writes one indented JSON document.
func writeJSON(w io.Writer, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	encoded = append(encoded, '\n')
	if _, err := w.Write(encoded); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

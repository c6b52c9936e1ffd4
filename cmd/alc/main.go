package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"alchemist/internal/app"
	"alchemist/internal/config"
	"alchemist/internal/dataset"
	"alchemist/internal/db"
	"alchemist/internal/domain"
	"alchemist/internal/engine"
	"alchemist/internal/engine/auth"
	"alchemist/internal/repo"
	"alchemist/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "alc",
	Short: "Alchemist CLI",
	Long: `Alchemist checks client, worker and task spreadsheets and allocates requested tasks to
workers across numbered phases.
- Workspace: a directory holding alchemist.yml and the .alchemist database.
- Datasets: the clients, workers and tasks tables, imported from CSV and replaced whole.
- Validate: field-level checks on the stored datasets; nothing is changed.
- Schedule: greedy first-fit allocation, highest PriorityLevel first; --strict refuses to run on invalid data.
- Runs: every validation and schedule is stored and can be listed or shown later.
- Export: datasets, rules, weights and the latest schedule as one JSON document.
- Event log: diary of imports, runs and key changes, view with 'alc log tail'.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ALCHEMIST")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log engine activity to stderr")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(datasetCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(tokenCmd())
}

func initCmd() *cobra.Command {
	var name string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create alchemist.yml and the workspace database",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(name)), 0o644); err != nil {
				return err
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if viper.GetBool("json") {
					return printJSON(map[string]any{"config": path, "database": db.Path(workspace)})
				}
				fmt.Printf("Wrote %s\nDatabase at %s\n", path, db.Path(workspace))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "default", "workspace name")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing alchemist.yml")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect alchemist.yml",
		Long:  "Config holds the priority weights, the business rules, strict scheduling, server, RBAC roles, tracing and webhooks.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSON(e.Config)
			})
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate alchemist.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func datasetCmd() *cobra.Command {
	ds := &cobra.Command{
		Use:   "dataset",
		Short: "Import and inspect datasets",
		Long:  "Datasets are clients, workers or tasks. An import replaces the whole dataset.",
	}
	ds.AddCommand(datasetImportCmd())
	ds.AddCommand(datasetListCmd())
	ds.AddCommand(datasetShowCmd())
	ds.AddCommand(datasetSearchCmd())
	return ds
}

func datasetImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <clients|workers|tasks> <file.csv>",
		Short: "Import a CSV file with a header row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseDatasetKind(args[0])
			if err != nil {
				return err
			}
			var r io.Reader = os.Stdin
			source := "stdin"
			if args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
				source = args[1]
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				info, err := e.ImportCSV(ctx, kind, r, source, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(info)
				}
				fmt.Printf("Imported %d %s from %s\n", info.Rows, info.Kind, source)
				return nil
			})
		},
	}
}

func datasetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List imported datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Datasets(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable(table.Row{"Kind", "Rows", "Source", "Updated"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.Kind, it.Rows, it.SourceName, it.UpdatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func datasetShowCmd() *cobra.Command {
	var asCSV bool
	cmd := &cobra.Command{
		Use:   "show <clients|workers|tasks>",
		Short: "Print a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseDatasetKind(args[0])
			if err != nil {
				return err
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				info, rows, err := e.Dataset(ctx, kind)
				if err != nil {
					return err
				}
				columns := dataset.Columns(kind, rows)
				switch {
				case asCSV:
					return dataset.WriteCSV(os.Stdout, columns, rows)
				case viper.GetBool("json"):
					return printJSON(map[string]any{"info": info, "records": rows})
				}
				printRecords(columns, indexed(rows))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")
	return cmd
}

func datasetSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <clients|workers|tasks> <query>",
		Short: "Rows where any cell contains query, ignoring case",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseDatasetKind(args[0])
			if err != nil {
				return err
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				matches, err := e.SearchDataset(ctx, kind, args[1])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(matches)
				}
				rows := make([]domain.Record, 0, len(matches))
				for _, m := range matches {
					rows = append(rows, m.Record)
				}
				printRecords(dataset.Columns(kind, rows), matches)
				return nil
			})
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the stored datasets",
		Long:  "Runs every field-level check and stores the result as a run. Exits non-zero when any error is found.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				run, err := e.Validate(ctx, engine.ValidateOptions{ActorID: viper.GetString("actor-id")})
				if err != nil {
					return err
				}
				if err := printRun(run); err != nil {
					return err
				}
				if run.Status != domain.RunOK {
					return fmt.Errorf("%d validation errors (run %s)", run.ErrorCount, run.ID)
				}
				return nil
			})
		},
	}
}

func scheduleCmd() *cobra.Command {
	var strict bool
	var weights map[string]int
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Allocate requested tasks to workers across phases",
		Long: `Clients are served in descending PriorityLevel order; each requested task goes to the
first worker and phase that fits. Rules from alchemist.yml are checked as advisory hooks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				run, err := e.Schedule(ctx, engine.ScheduleOptions{
					ActorID:       viper.GetString("actor-id"),
					Strict:        strict,
					ScheduleInput: engine.ScheduleInput{Weights: domain.Weights(weights)},
				})
				if err != nil {
					return err
				}
				if err := printRun(run); err != nil {
					return err
				}
				if run.Status == domain.RunBlocked {
					return fmt.Errorf("schedule blocked by %d validation errors (run %s)", run.ErrorCount, run.ID)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "validate first and refuse to allocate on any error")
	cmd.Flags().StringToIntVar(&weights, "weight", nil, "weight override, e.g. --weight clients=8")
	return cmd
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write datasets, rules, weights and the latest schedule as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				doc, err := e.Export(ctx, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if out == "" || out == "-" {
					return doc.Write(os.Stdout)
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := doc.Write(f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Wrote %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (stdout when empty)")
	return cmd
}

func runCmd() *cobra.Command {
	r := &cobra.Command{Use: "run", Short: "Inspect stored runs"}
	r.AddCommand(runListCmd())
	r.AddCommand(runShowCmd())
	return r
}

func runListCmd() *cobra.Command {
	var kind, status string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				runs, err := e.Runs(ctx, repo.RunFilters{Kind: kind, Status: status, Limit: limit})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(runs)
				}
				tw := newTable(table.Row{"ID", "Kind", "Status", "Errors", "Assignments", "Actor", "Created"})
				for _, r := range runs {
					tw.AppendRow(table.Row{r.ID, r.Kind, r.Status, r.ErrorCount, r.AssignmentCount, r.ActorID, r.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "validate or schedule")
	cmd.Flags().StringVar(&status, "status", "", "ok, invalid or blocked")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs")
	return cmd
}

func runShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a run with its errors or assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				run, err := e.Run(ctx, args[0])
				if err != nil {
					return err
				}
				return printRun(run)
			})
		},
	}
}

func logCmd() *cobra.Command {
	l := &cobra.Command{Use: "log", Short: "Event log"}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.EventLog(ctx, repo.EventFilters{Type: evtType, EntityKind: entityKind, EntityID: entityID, Limit: n})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := newTable(table.Row{"ID", "Time", "Type", "Entity", "Actor", "Payload"})
				for _, evt := range events {
					entity := evt.EntityKind
					if evt.EntityID != "" {
						entity += ":" + evt.EntityID
					}
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, entity, evt.ActorID, evt.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var anonymous bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		Long:  "Bearer tokens are verified with ALCHEMIST_JWT_SECRET. API keys are accepted in X-Api-Key.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if !cmd.Flags().Changed("addr") && e.Config.Server.Addr != "" {
					addr = e.Config.Server.Addr
				}
				if !cmd.Flags().Changed("base-path") && e.Config.Server.BasePath != "" {
					basePath = e.Config.Server.BasePath
				}
				authCfg := server.AuthConfig{
					JWTSecret:      viper.GetString("jwt-secret"),
					AllowAnonymous: anonymous || e.Config.Server.AllowAnonymous,
					Logger:         log.Default(),
				}
				if authCfg.JWTSecret == "" && !authCfg.AllowAnonymous {
					return fmt.Errorf("ALCHEMIST_JWT_SECRET is required unless anonymous access is allowed")
				}
				handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
				if err != nil {
					return err
				}
				if d := server.NewWebhookDispatcher(e, log.Default()); d != nil {
					go d.Run(ctx, server.DefaultWebhookInterval)
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Alchemist API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at %s/docs)\n", addr, basePath, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&anonymous, "allow-anonymous", false, "grant every permission to requests without credentials")
	return cmd
}

func apikeyCmd() *cobra.Command {
	k := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	k.AddCommand(apikeyCreateCmd())
	k.AddCommand(apikeyListCmd())
	k.AddCommand(apikeyRevokeCmd())
	return k
}

func apikeyCreateCmd() *cobra.Command {
	var actor, name string
	var perms []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key; the secret is printed once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				key, secret, err := e.CreateAPIKey(ctx, actor, name, perms, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"key": key, "secret": secret})
				}
				fmt.Printf("API key %s for %s\nPermissions: %s\nSecret (shown once): %s\n", key.ID, key.ActorID, strings.Join(key.Permissions, ", "), secret)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "actor the key authenticates as")
	cmd.Flags().StringVar(&name, "name", "", "label")
	cmd.Flags().StringSliceVar(&perms, "perm", nil, "permission, repeatable: "+strings.Join(auth.All(), ", "))
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				keys, err := e.APIKeys(ctx, actor)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := newTable(table.Row{"ID", "Actor", "Name", "Permissions", "Created"})
				for _, k := range keys {
					tw.AppendRow(table.Row{k.ID, k.ActorID, k.Name, strings.Join(k.Permissions, ","), k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "only keys for this actor")
	return cmd
}

func apikeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.RevokeAPIKey(ctx, args[0], viper.GetString("actor-id")); err != nil {
					return err
				}
				fmt.Printf("Revoked %s\n", args[0])
				return nil
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	t := &cobra.Command{Use: "token", Short: "Bearer tokens"}
	t.AddCommand(tokenMintCmd())
	return t
}

func tokenMintCmd() *cobra.Command {
	var subject string
	var roles, perms []string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Sign an HS256 token with ALCHEMIST_JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := viper.GetString("jwt-secret")
			if secret == "" {
				return fmt.Errorf("ALCHEMIST_JWT_SECRET is required")
			}
			token, err := server.SignToken(secret, subject, roles, perms, ttl)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"token": token, "subject": subject, "roles": roles})
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "actor id placed in the sub claim")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role from rbac.roles, repeatable")
	cmd.Flags().StringSliceVar(&perms, "perm", nil, "extra permission, repeatable")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime (0 means no expiry)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

// --- helpers ---

func withWorkspace(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	logger := log.New(io.Discard, "", 0)
	if viper.GetBool("verbose") {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	ws, err := app.Open(ctx, viper.GetString("workspace"), logger)
	if err != nil {
		return err
	}
	defer ws.Close(context.Background())
	return fn(ctx, ws.Engine)
}

func newTable(header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(header)
	return tw
}

func printRun(run domain.Run) error {
	if viper.GetBool("json") {
		return printJSON(run)
	}
	fmt.Printf("Run %s: %s %s (%d errors, %d assignments)\n", run.ID, run.Kind, run.Status, run.ErrorCount, run.AssignmentCount)
	if run.ErrorCount > 0 {
		tw := newTable(table.Row{"Dataset", "Row", "Column", "Message"})
		kinds := make([]string, 0, len(run.Errors))
		for k := range run.Errors {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			for _, ve := range run.Errors[k] {
				tw.AppendRow(table.Row{k, ve.RowIndex + 1, ve.ColumnKey, ve.Message})
			}
		}
		tw.Render()
	}
	if len(run.Assignments) > 0 {
		tw := newTable(table.Row{"Phase", "Task", "Client", "Worker"})
		for _, a := range run.Assignments {
			tw.AppendRow(table.Row{a.Phase, a.TaskID, a.ClientID, a.WorkerID})
		}
		tw.Render()
	}
	return nil
}

func indexed(rows []domain.Record) []dataset.Match {
	out := make([]dataset.Match, len(rows))
	for i, r := range rows {
		out[i] = dataset.Match{Index: i, Record: r}
	}
	return out
}

func printRecords(columns []string, rows []dataset.Match) {
	header := table.Row{"#"}
	for _, c := range columns {
		header = append(header, c)
	}
	tw := newTable(header)
	for _, m := range rows {
		row := table.Row{m.Index + 1}
		for _, c := range columns {
			row = append(row, m.Record[c])
		}
		tw.AppendRow(row)
	}
	tw.Render()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tokendrop/internal/api"
	"tokendrop/internal/config"
	"tokendrop/internal/distributor"
	"tokendrop/internal/ledger"
	"tokendrop/internal/model"
	"tokendrop/internal/store"
	"tokendrop/internal/store/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "tokendrop",
		Short:        "Participation token distribution orchestrator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", "", "ledger RPC URL")
	root.PersistentFlags().String("pg-dsn", "", "Postgres DSN")
	root.PersistentFlags().String("key-file", "", "hex-encoded ed25519 seed file")
	root.PersistentFlags().Uint64("confirm-window", 150, "confirmation expiry window in blocks")
	root.PersistentFlags().Duration("stale-pending-after", 30*time.Minute, "expire pending claims older than this")
	root.PersistentFlags().Uint32("compute-unit-limit", 500_000, "compute unit limit for compression transactions")
	root.PersistentFlags().Uint64("priority-fee", 10_000, "priority fee in micro-lamports")
	root.PersistentFlags().Int("max-retries", 5, "maximum retry attempts for read-only calls")
	root.PersistentFlags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Register an event and its participation token",
		RunE:  runRegister,
	}
	registerCmd.Flags().String("title", "", "event title")
	registerCmd.Flags().String("symbol", "", "token symbol")
	registerCmd.Flags().Uint8("decimals", 0, "token decimals")
	registerCmd.Flags().Uint64("attendees", 0, "target supply (attendee count)")
	registerCmd.Flags().String("mint", "", "mint address, if already minted")
	registerCmd.Flags().String("mint-tx", "", "mint transaction id")
	root.AddCommand(registerCmd)

	provisionCmd := &cobra.Command{
		Use:   "provision <event-id>",
		Short: "Provision the distribution pool for an event",
		Args:  cobra.ExactArgs(1),
		RunE:  runProvision,
	}
	root.AddCommand(provisionCmd)

	compressCmd := &cobra.Command{
		Use:   "compress <event-id>",
		Short: "Compress the event's supply into its pool",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompress,
	}
	root.AddCommand(compressCmd)

	claimCmd := &cobra.Command{
		Use:   "claim <event-id> <wallet>",
		Short: "Claim one unit for a wallet",
		Args:  cobra.ExactArgs(2),
		RunE:  runClaim,
	}
	root.AddCommand(claimCmd)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List claim history for an event or wallet",
		RunE:  runHistory,
	}
	historyCmd.Flags().String("event", "", "event id")
	historyCmd.Flags().String("wallet", "", "wallet address")
	historyCmd.Flags().String("out", "", "optional JSONL export path")
	root.AddCommand(historyCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE:  runServe,
	}
	serveCmd.Flags().String("http-addr", ":8080", "HTTP listen address")
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type deps struct {
	cfg    config.Config
	logger *zap.Logger
	store  *postgres.Store
	ledger *ledger.Client
	dist   *distributor.Distributor
	signer *ledger.LocalSigner
}

func (d *deps) close() {
	if d.ledger != nil {
		d.ledger.Close()
	}
	if d.store != nil {
		d.store.Close()
	}
	if d.logger != nil {
		d.logger.Sync()
	}
}

func buildDeps(ctx context.Context, cmd *cobra.Command, needsSigner bool) (*deps, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if cfg.PGDSN == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}

	st, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}
	if err := st.Init(ctx); err != nil {
		st.Close()
		return nil, err
	}

	ledgerClient, err := ledger.Dial(ctx, cfg.RPCURL)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	var signer *ledger.LocalSigner
	if needsSigner {
		if cfg.KeyFile == "" {
			ledgerClient.Close()
			st.Close()
			return nil, fmt.Errorf("key file is required")
		}
		signer, err = ledger.LoadLocalSigner(cfg.KeyFile)
		if err != nil {
			ledgerClient.Close()
			st.Close()
			return nil, err
		}
	}

	dist := distributor.New(distributor.Config{
		ConfirmWindow:     cfg.ConfirmWindow,
		StalePendingAfter: cfg.StalePendingAfter,
		Budget: ledger.ComputeBudget{
			UnitLimit:                cfg.ComputeUnitLimit,
			PriorityFeeMicroLamports: cfg.PriorityFee,
		},
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, st, ledgerClient, logger)

	return &deps{cfg: cfg, logger: logger, store: st, ledger: ledgerClient, dist: dist, signer: signer}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runRegister(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	d, err := buildDeps(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer d.close()

	title, _ := cmd.Flags().GetString("title")
	symbol, _ := cmd.Flags().GetString("symbol")
	decimals, _ := cmd.Flags().GetUint8("decimals")
	attendees, _ := cmd.Flags().GetUint64("attendees")
	mint, _ := cmd.Flags().GetString("mint")
	mintTx, _ := cmd.Flags().GetString("mint-tx")

	if title == "" || symbol == "" || attendees == 0 {
		return fmt.Errorf("title, symbol, and attendees are required")
	}

	event := model.Event{
		ID:            uuid.NewString(),
		Title:         title,
		Symbol:        symbol,
		Decimals:      decimals,
		AttendeeCount: attendees,
		Creator:       d.signer.PublicKey(),
		Mint:          mint,
		MintTxID:      mintTx,
		CreatedAt:     time.Now().UTC(),
	}
	if err := d.store.InsertEvent(ctx, event); err != nil {
		return fmt.Errorf("register event: %w", err)
	}

	d.logger.Info("event registered", zap.String("event_id", event.ID))
	return printJSON(event)
}

func runProvision(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	d, err := buildDeps(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer d.close()

	pool, err := d.dist.ProvisionPool(ctx, args[0], d.signer)
	if err != nil {
		return err
	}
	return printJSON(pool)
}

func runCompress(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	d, err := buildDeps(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer d.close()

	txID, err := d.dist.CompressSupply(ctx, args[0], d.signer)
	if err != nil {
		// The pool stays valid; compression can be re-run manually.
		d.logger.Warn("compression did not complete", zap.Error(err))
		return err
	}
	return printJSON(map[string]string{"tx_id": txID})
}

func runClaim(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	d, err := buildDeps(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer d.close()

	// The operator key fronts the claim fee; wallet-signed fee payment
	// needs a transport that can relay the claimant's signature.
	feePayer := d.signer
	outcome, err := d.dist.Claim(ctx, args[0], args[1], feePayer)
	if err != nil {
		return err
	}
	return printJSON(outcome)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	d, err := buildDeps(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer d.close()

	eventID, _ := cmd.Flags().GetString("event")
	wallet, _ := cmd.Flags().GetString("wallet")

	var claims []model.Claim
	switch {
	case eventID != "":
		claims, err = d.dist.EventClaimHistory(ctx, eventID)
	case wallet != "":
		claims, err = d.dist.WalletClaimHistory(ctx, wallet)
	default:
		return fmt.Errorf("either --event or --wallet is required")
	}
	if err != nil {
		return err
	}

	if d.cfg.Out != "" {
		if err := store.ExportClaimsJSONL(d.cfg.Out, claims); err != nil {
			return err
		}
		d.logger.Info("claim history exported", zap.String("out", d.cfg.Out), zap.Int("claims", len(claims)))
		return nil
	}
	return printJSON(claims)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	d, err := buildDeps(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer d.close()

	server := api.NewServer(d.dist, d.store, d.signer, d.logger)
	router := server.Router()

	d.logger.Info("http server start", zap.String("addr", d.cfg.HTTPAddr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Run(d.cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		d.logger.Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

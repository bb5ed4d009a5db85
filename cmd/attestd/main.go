package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aspect-build/attestd/internal/attestation"
	"github.com/aspect-build/attestd/internal/execx"
	"github.com/aspect-build/attestd/internal/logx"
	"github.com/aspect-build/attestd/internal/server"
	"github.com/aspect-build/attestd/internal/version"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

type globalOptions struct {
	envFile    string
	logLevel   string
	verbose    bool
	tpmBackend string
	tpmDevice  string
}

func main() {
	var opts globalOptions

	rootCmd := &cobra.Command{
		Use:   "attestd",
		Short: "attestd - TEE evidence endpoint for confidential workloads",
		Long: `attestd serves a JSON document describing whether this host runs inside a
Trusted Execution Environment: kernel TEE markers, the Azure IMDS attested
document, TPM PCR values and NVIDIA confidential computing mode.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFile(opts.envFile, cmd.Flags().Changed("env-file")); err != nil {
				return err
			}
			return logx.Configure(opts.logLevel, opts.verbose)
		},
	}
	rootCmd.SetVersionTemplate(version.String("attestd") + "\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.envFile, "env-file", ".env", "Path to .env file (skipped if not found and not explicitly set)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error (or "+logx.EnvLevel+")")
	pf.BoolVar(&opts.verbose, "verbose", false, "Enable verbose debug logs (same as --log-level debug)")
	pf.StringVar(&opts.tpmBackend, "tpm-backend", "", "PCR source: tools (tpm2_pcrread) or device (direct TPM access)")
	pf.StringVar(&opts.tpmDevice, "tpm-device", "", "TPM device for the device backend (default "+attestation.DefaultTPMDevice+")")

	serveCmd := newServeCmd(&opts)
	// Bare "attestd" serves, matching how the service is launched by init scripts.
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())
	rootCmd.RunE = serveCmd.RunE

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newCollectCmd(&opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "attestd: %v\n", err)
		os.Exit(1)
	}
}

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /attestation, /v1/attestation and /health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVar(&host, "host", server.DefaultHost, "Host to bind to (or ATTESTD_HOST)")
	cmd.Flags().IntVar(&port, "port", server.DefaultPort, "Port to listen on (or ATTESTD_PORT)")

	return cmd
}

func newCollectCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Run one attestation pass and print the document to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			resp := newAggregator(cfg).Attest(cmd.Context())

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
}

func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			// Default .env not found → proceed without it
			return nil
		}
		return fmt.Errorf("load env file: %w", err)
	}
	logx.Debugf("loaded environment from %s", path)
	return nil
}

func loadConfig(cmd *cobra.Command, opts *globalOptions) (*server.Config, error) {
	cfg, err := server.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("tpm-backend") {
		cfg.TPMBackend = server.NormalizeTPMBackend(opts.tpmBackend)
	}
	if cmd.Flags().Changed("tpm-device") {
		cfg.TPMDevice = opts.tpmDevice
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newAggregator(cfg *server.Config) *attestation.Aggregator {
	var pcr attestation.PCRReader
	if cfg.TPMBackend == server.TPMBackendDevice {
		pcr = attestation.PCRDevice{Path: cfg.TPMDevice}
	}
	imds := attestation.NewIMDSClient(cfg.IMDSEndpoint, cfg.VMSizeOverride)
	return attestation.NewAggregator(execx.OSRunner{}, imds, pcr)
}

func serve(cfg *server.Config) error {
	if !logx.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := server.NewRouter(newAggregator(cfg), cfg)
	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// Slowest collector is 10s; leave room for serialization.
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logx.Infof("%s", version.String("attestd"))
	logx.Infof("attestation server running on http://%s (tpm_backend=%s imds=%s)", cfg.ListenAddr(), cfg.TPMBackend, cfg.IMDSEndpoint)
	logx.Infof("endpoints: /attestation, /v1/attestation, /health")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logx.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

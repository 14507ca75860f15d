// Command newsverifyd serves the verification ledger over gRPC.
//
// It owns the authoritative badger store, the claim-document archive and the
// status mirror, and exposes SubmitVerification, SubmitRating, GetAggregate
// and GetStatus to clients.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"github.com/LJ-Solana/solana-news-app-sub000/archive"
	"github.com/LJ-Solana/solana-news-app-sub000/feed"
	"github.com/LJ-Solana/solana-news-app-sub000/index"
	"github.com/LJ-Solana/solana-news-app-sub000/ledger"
	"github.com/LJ-Solana/solana-news-app-sub000/rating"
	"github.com/LJ-Solana/solana-news-app-sub000/rpc"
	"github.com/LJ-Solana/solana-news-app-sub000/store/badgerstore"
)

const version = "v0.3.1"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "newsverifyd",
	Short:         "Verification ledger daemon",
	Long:          "newsverifyd serves the content verification ledger: signed claims,\nbounded ratings and finalization over gRPC.",
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newsverifyd " + version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.newsverify/config.yaml)")
	rootCmd.Flags().String("listen", ":9090", "gRPC listen address")
	rootCmd.Flags().String("data-dir", "data/ledger", "badger database directory")
	rootCmd.Flags().String("archive-dir", "data/claims", "claim document archive directory")
	rootCmd.Flags().Int("daily-limit", ledger.DefaultDailyLimit, "verifications per attester per UTC day")
	rootCmd.Flags().Duration("rating-window", ledger.DefaultRatingWindow, "how long ratings stay open after a claim")
	rootCmd.Flags().String("feed-url", "", "news feed endpoint (optional)")
	rootCmd.Flags().String("log-level", "info", "zerolog level: trace, debug, info, warn, error")

	for _, name := range []string{"listen", "data-dir", "archive-dir", "daily-limit", "rating-window", "feed-url", "log-level"} {
		_ = viper.BindPFlag(name, rootCmd.Flags().Lookup(name))
	}

	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.newsverify")
			viper.SetConfigType("yaml")
			viper.SetConfigName("config")
		}
	}
	viper.SetEnvPrefix("NEWSVERIFY")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

func run() error {
	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	st, err := badgerstore.Open(viper.GetString("data-dir"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	arch, err := archive.NewFS(viper.GetString("archive-dir"))
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("open archive: %w", err)
	}
	mirror := index.NewMirror(index.DefaultTTL)

	led, err := ledger.Open(st, ledger.Config{
		DailyLimit:   viper.GetInt("daily-limit"),
		RatingWindow: viper.GetDuration("rating-window"),
		Archive:      arch,
		Mirror:       mirror,
		Log:          log,
	})
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("open ledger: %w", err)
	}
	defer led.Close()

	agg := rating.NewAggregator(st, nil)

	if url := viper.GetString("feed-url"); url != "" {
		fc := feed.New(url, feed.Options{Log: log})
		log.Info().Str("url", url).Int("items", len(fc.Latest(context.Background()))).Msg("feed probe")
	}

	lis, err := net.Listen("tcp", viper.GetString("listen"))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	srv := grpc.NewServer()
	rpc.RegisterLedgerServer(srv, rpc.NewServer(led, agg, mirror, log))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(lis) }()
	log.Info().Str("addr", lis.Addr().String()).Str("version", version).Msg("ledger daemon listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		stopped := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(10 * time.Second):
			srv.Stop()
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/de-tools/defender-bridge/pkg/server"
	"github.com/de-tools/defender-bridge/pkg/services/assignment"
	"github.com/de-tools/defender-bridge/pkg/services/auth"
	"github.com/de-tools/defender-bridge/pkg/services/config"
	"github.com/de-tools/defender-bridge/pkg/services/exemption"
	"github.com/de-tools/defender-bridge/pkg/services/recommendation"
	"github.com/de-tools/defender-bridge/pkg/services/resilience"
	"github.com/de-tools/defender-bridge/pkg/store/securitycenter"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the Defender Bridge web server",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the service configuration file (defaults apply when omitted)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("No .env file loaded: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	profile, err := auth.LoadProfile("", cfg.AzureProfile)
	if err != nil {
		return fmt.Errorf("failed to load Azure profile: %w", err)
	}

	cred, err := auth.NewCredentialProvider(profile).Resolve(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve provider credential: %w", err)
	}

	logger.Info().Str("subscription_id", profile.SubscriptionID).Msg("provider credential resolved")

	clientOpts := &securitycenter.Options{Timeout: cfg.ProviderTimeout}
	client := securitycenter.NewClient(cred, clientOpts)
	directory := securitycenter.NewDirectory(cred, &securitycenter.Options{Timeout: cfg.ProviderTimeout})

	executor := resilience.NewExecutor(resilience.Config{
		BaseDelay:        cfg.Retry.BaseDelay,
		MaxDelay:         cfg.Retry.MaxDelay,
		MaxAttempts:      cfg.Retry.MaxAttempts,
		JitterFraction:   cfg.Retry.JitterFraction,
		BreakerThreshold: cfg.Retry.BreakerThreshold,
		Cooldown:         cfg.Retry.Cooldown,
	})

	recommendations := recommendation.NewService(client, executor, recommendation.Config{
		SubscriptionID: profile.SubscriptionID,
		GracePeriod:    cfg.GracePeriod,
		CacheEnabled:   cfg.Cache.Enabled,
		CacheTTL:       cfg.Cache.TTL,
		CacheCapacity:  cfg.Cache.Capacity,
	})
	exemptions := exemption.NewService(client, executor, exemption.Config{
		SubscriptionID: profile.SubscriptionID,
	})
	assignments := assignment.NewService(client, directory, executor, assignment.Config{
		SubscriptionID: profile.SubscriptionID,
		GracePeriod:    cfg.GracePeriod,
	})

	webAPI := server.NewWebAPI(logger, server.Config{
		Addr:            cfg.Addr,
		ShutdownTimeout: 10 * time.Second,
		Dependencies: server.Dependencies{
			Recommendations: recommendations,
			Exemptions:      exemptions,
			Assignments:     assignments,
		},
	})

	return webAPI.Start()
}

package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"layered-remap/internal/app"
)

// settingsOptions are the persistent flags shared by every command that
// touches the cache or the network.
type settingsOptions struct {
	CacheDir       string
	Repositories   []string
	Offline        bool
	ManifestURL    string
	HTTPTimeoutSec int
	HTTPRetries    int
	HTTPRetryDelay int
	RepoUser       string
	RepoPassword   string
	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3UseSSL       bool
	MemoryTables   int
}

func (o *settingsOptions) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.CacheDir, "cache-dir", "", "Cache directory (defaults to project cache_dir or .layered-remap)")
	flags.StringSliceVar(&o.Repositories, "repository", nil, "Additional maven repositories (http(s)://, s3://, file:// or a directory)")
	flags.BoolVar(&o.Offline, "offline", false, "Only use cached artifacts")
	flags.StringVar(&o.ManifestURL, "manifest-url", "", "Game version manifest URL")
	flags.IntVar(&o.HTTPTimeoutSec, "http-timeout", 60, "HTTP timeout in seconds (0 = default)")
	flags.IntVar(&o.HTTPRetries, "http-retries", 3, "HTTP retries (0 = default)")
	flags.IntVar(&o.HTTPRetryDelay, "http-retry-delay-ms", 200, "HTTP retry base delay in ms (0 = default)")
	flags.StringVar(&o.RepoUser, "repo-user", "", "Username for maven repository basic auth")
	flags.StringVar(&o.RepoPassword, "repo-password", "", "Password for maven repository basic auth")
	flags.StringVar(&o.S3Endpoint, "s3-endpoint", "", "S3 endpoint for s3:// repositories (host:port)")
	flags.StringVar(&o.S3Region, "s3-region", "", "S3 region (defaults to us-east-1)")
	flags.StringVar(&o.S3AccessKey, "s3-access-key", "", "S3 access key")
	flags.StringVar(&o.S3SecretKey, "s3-secret-key", "", "S3 secret key")
	flags.BoolVar(&o.S3UseSSL, "s3-ssl", true, "Use TLS for the S3 endpoint")
	flags.IntVar(&o.MemoryTables, "memory-tables", 0, "Unified tables kept in memory (0 = default)")

	_ = viper.BindPFlag("cache_dir", flags.Lookup("cache-dir"))
	_ = viper.BindPFlag("repositories", flags.Lookup("repository"))
	_ = viper.BindPFlag("offline", flags.Lookup("offline"))
	_ = viper.BindPFlag("manifest_url", flags.Lookup("manifest-url"))
	_ = viper.BindPFlag("http_timeout_sec", flags.Lookup("http-timeout"))
	_ = viper.BindPFlag("http_retries", flags.Lookup("http-retries"))
	_ = viper.BindPFlag("http_retry_delay_ms", flags.Lookup("http-retry-delay-ms"))
	_ = viper.BindPFlag("repo_user", flags.Lookup("repo-user"))
	_ = viper.BindPFlag("repo_password", flags.Lookup("repo-password"))
	_ = viper.BindPFlag("s3_endpoint", flags.Lookup("s3-endpoint"))
	_ = viper.BindPFlag("s3_region", flags.Lookup("s3-region"))
	_ = viper.BindPFlag("s3_access_key", flags.Lookup("s3-access-key"))
	_ = viper.BindPFlag("s3_secret_key", flags.Lookup("s3-secret-key"))
	_ = viper.BindPFlag("s3_use_ssl", flags.Lookup("s3-ssl"))
	_ = viper.BindPFlag("memory_tables", flags.Lookup("memory-tables"))
}

func (o *settingsOptions) settings(cmd *cobra.Command) app.Settings {
	return app.Settings{
		CacheDir:         resolveString(cmd, o.CacheDir, "cache_dir", "cache-dir"),
		Repositories:     resolveStrings(cmd, o.Repositories, "repositories", "repository"),
		Offline:          resolveBool(cmd, o.Offline, "offline", "offline"),
		ManifestURL:      resolveString(cmd, o.ManifestURL, "manifest_url", "manifest-url"),
		HTTPTimeoutSec:   resolveInt(cmd, o.HTTPTimeoutSec, "http_timeout_sec", "http-timeout"),
		HTTPRetries:      resolveInt(cmd, o.HTTPRetries, "http_retries", "http-retries"),
		HTTPRetryDelayMs: resolveInt(cmd, o.HTTPRetryDelay, "http_retry_delay_ms", "http-retry-delay-ms"),
		RepoUser:         resolveString(cmd, o.RepoUser, "repo_user", "repo-user"),
		RepoPassword:     resolveString(cmd, o.RepoPassword, "repo_password", "repo-password"),
		S3Endpoint:       resolveString(cmd, o.S3Endpoint, "s3_endpoint", "s3-endpoint"),
		S3Region:         resolveString(cmd, o.S3Region, "s3_region", "s3-region"),
		S3AccessKey:      resolveString(cmd, o.S3AccessKey, "s3_access_key", "s3-access-key"),
		S3SecretKey:      resolveString(cmd, o.S3SecretKey, "s3_secret_key", "s3-secret-key"),
		S3UseSSL:         resolveBool(cmd, o.S3UseSSL, "s3_use_ssl", "s3-ssl"),
		MemoryTables:     resolveInt(cmd, o.MemoryTables, "memory_tables", "memory-tables"),
	}
}
